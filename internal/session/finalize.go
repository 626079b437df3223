package session

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode"

	"github.com/zhouzirui/chat-relay/backend/internal/metrics"
	"github.com/zhouzirui/chat-relay/backend/internal/model/convo"
	"github.com/zhouzirui/chat-relay/backend/internal/service/analysis"
)

const transcriptSeparator = "\n"

// ChatLog is the single record persisted per loggable session.
type ChatLog struct {
	Origin           string    `firestore:"origin" json:"origin"`
	StartedAt        time.Time `firestore:"started_at" json:"started_at"`
	EndedAt          time.Time `firestore:"ended_at" json:"ended_at"`
	Sentiment        string    `firestore:"sentiment" json:"sentiment"`
	Subject          string    `firestore:"subject" json:"subject"`
	Transcript       string    `firestore:"transcript" json:"transcript"`
	ResolutionStatus string    `firestore:"resolution_status" json:"resolution_status"`
	Tags             []string  `firestore:"tags" json:"tags,omitempty"`
	AnalysisFailed   bool      `firestore:"analysis_failed" json:"analysis_failed,omitempty"`
}

// finalize analyzes the transcript and writes exactly one record to the
// tenant store. Persistence failure is logged and swallowed: the client
// connection is already gone.
func (e *Engine) finalize(ctx context.Context) {
	transcript := renderTranscript(e.convo.Snapshot())
	if transcript == "" {
		return
	}

	var outcome analysis.Outcome
	if e.deps.Analyzer != nil {
		outcome = e.deps.Analyzer.Analyze(ctx, transcript)
	} else {
		outcome = analysis.FailedOutcome()
	}
	if outcome.Failed {
		metrics.CollaboratorFailure("analysis")
	}

	record := ChatLog{
		Origin:           e.origin,
		StartedAt:        e.startedAt,
		EndedAt:          time.Now().UTC(),
		Sentiment:        outcome.Sentiment,
		Subject:          outcome.Subject,
		Transcript:       transcript,
		ResolutionStatus: outcome.ResolutionStatus,
		Tags:             outcome.Tags,
		AnalysisFailed:   outcome.Failed,
	}

	docID := logDocumentID(e.startedAt, outcome.Subject)
	if err := e.tenant.Write(ctx, e.deps.LogCollection, docID, record); err != nil {
		metrics.CollaboratorFailure("persistence")
		log.Printf("[session] id=%s persist chat log failed: %v", e.id, err)
		return
	}

	metrics.SessionFinalized()
	log.Printf("[session] id=%s logged conversation doc=%s", e.id, docID)
}

// renderTranscript renders every non-system turn as "[role] content"
// joined by the fixed separator.
func renderTranscript(turns []convo.Turn) string {
	parts := make([]string, 0, len(turns))
	for _, turn := range turns {
		if turn.Role == convo.RoleSystem {
			continue
		}
		content := strings.TrimSpace(turn.Content)
		if content == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("[%s] %s", turn.Role, content))
	}
	return strings.Join(parts, transcriptSeparator)
}

// logDocumentID derives the record identifier from the session start time
// and the slugified analysis subject.
func logDocumentID(startedAt time.Time, subject string) string {
	return startedAt.UTC().Format(time.RFC3339) + "-" + slugify(subject)
}

// slugify lowercases, collapses whitespace runs to single hyphens, strips
// non-word characters, and collapses repeated hyphens.
func slugify(s string) string {
	var b strings.Builder
	lastHyphen := false
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch {
		case unicode.IsSpace(r) || r == '-':
			if !lastHyphen && b.Len() > 0 {
				b.WriteByte('-')
				lastHyphen = true
			}
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_':
			b.WriteRune(r)
			lastHyphen = false
		}
	}

	slug := strings.Trim(b.String(), "-")
	if slug == "" {
		return "untitled"
	}
	return slug
}
