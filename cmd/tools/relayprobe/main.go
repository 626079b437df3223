// relayprobe 是中继服务的手动测试客户端：建立WebSocket连接，完成握手，
// 然后以文本或语音模式跑一轮对话并打印服务端事件
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/websocket"

	"github.com/zhouzirui/chat-relay/backend/internal/model/wire"
)

const audioChunkSize = 32 * 1024

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	serverURL := flag.String("url", "ws://localhost:8080/relay", "中继服务WebSocket地址")
	origin := flag.String("origin", "http://localhost:3000", "请求携带的Origin")
	credsPath := flag.String("creds", "", "租户凭证JSON文件路径 (service account)")
	botName := flag.String("bot", "Probe Bot", "握手配置中的机器人名称")
	text := flag.String("text", "", "文本模式: 发送的消息")
	audioPath := flag.String("audio", "", "语音模式: 输入音频文件路径")
	outputPath := flag.String("out", "reply.mp3", "语音模式: 回复音频输出路径")
	wait := flag.Duration("wait", 5*time.Second, "发送后等待服务端事件的时长")

	flag.Parse()

	if *credsPath == "" {
		flag.Usage()
		log.Fatal("请通过 -creds 指定租户凭证文件")
	}
	if *text == "" && *audioPath == "" {
		flag.Usage()
		log.Fatal("请通过 -text 或 -audio 指定要发送的内容")
	}

	creds, err := os.ReadFile(*credsPath)
	if err != nil {
		log.Fatalf("读取凭证文件失败: %v", err)
	}

	header := http.Header{}
	header.Set("Origin", *origin)
	conn, resp, err := websocket.DefaultDialer.Dial(*serverURL, header)
	if err != nil {
		log.Fatalf("连接失败: %v (resp=%v)", err, resp)
	}
	defer conn.Close()

	init := map[string]any{
		"type":             wire.TypeInitSession,
		"credentialBundle": json.RawMessage(creds),
		"config": map[string]any{
			"bot_name": *botName,
		},
	}
	if err := conn.WriteJSON(init); err != nil {
		log.Fatalf("握手发送失败: %v", err)
	}
	log.Println("握手已发送，等待欢迎消息...")

	if *audioPath != "" {
		if err := conn.WriteJSON(map[string]string{"type": wire.TypeInitVoice}); err != nil {
			log.Fatalf("切换语音模式失败: %v", err)
		}
		if err := streamAudio(conn, *audioPath); err != nil {
			log.Fatalf("音频发送失败: %v", err)
		}
	} else {
		if err := conn.WriteJSON(map[string]string{"type": wire.TypeTextMessage, "text": *text}); err != nil {
			log.Fatalf("消息发送失败: %v", err)
		}
	}

	readEvents(conn, *wait, *outputPath)
}

// streamAudio 按固定块大小把音频文件推送为二进制帧，结尾发送END_OF_STREAM
func streamAudio(conn *websocket.Conn, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("读取音频文件: %w", err)
	}

	for offset := 0; offset < len(data); offset += audioChunkSize {
		end := offset + audioChunkSize
		if end > len(data) {
			end = len(data)
		}
		if err := conn.WriteMessage(websocket.BinaryMessage, data[offset:end]); err != nil {
			return err
		}
	}
	log.Printf("已发送音频 %d 字节", len(data))

	return conn.WriteJSON(map[string]string{"type": wire.TypeEndOfStream})
}

func readEvents(conn *websocket.Conn, wait time.Duration, outputPath string) {
	deadline := time.Now().Add(wait)
	conn.SetReadDeadline(deadline)

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			log.Printf("读取结束: %v", err)
			return
		}

		if msgType == websocket.BinaryMessage {
			if err := os.WriteFile(outputPath, data, 0o644); err != nil {
				log.Printf("写回复音频失败: %v", err)
			} else {
				log.Printf("回复音频 %d 字节已写入 %s", len(data), outputPath)
			}
			continue
		}

		var ev wire.Outbound
		if err := json.Unmarshal(data, &ev); err != nil {
			log.Printf("未知事件: %s", data)
			continue
		}
		log.Printf("事件 type=%s text=%q", ev.Type, ev.Text)
	}
}
