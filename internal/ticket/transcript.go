package ticket

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/foxseedlab/pwbot/internal/discord"
	"github.com/foxseedlab/pwbot/internal/repository"
	"github.com/klauspost/compress/zip"
)

const (
	transcriptTimeLayout = "2006 Jan 02 15:04:05"
	transcriptEntryName  = "transcript.txt"
)

type transcript struct {
	lines       []string
	attachments []discord.Attachment
}

func formatTranscriptLine(msg discord.Message, loc *time.Location) string {
	marker := ""
	if len(msg.Attachments) > 0 {
		marker = " (attachment)"
	}
	return fmt.Sprintf("[%s] %s (%s)%s: %s",
		msg.Timestamp.In(loc).Format(transcriptTimeLayout), msg.AuthorName, msg.AuthorID, marker, msg.Content)
}

func (m *Manager) collectTranscript(ctx context.Context, channelID string) (*transcript, error) {
	t := &transcript{}
	for msg, err := range m.discord.FetchHistory(ctx, channelID) {
		if err != nil {
			return nil, fmt.Errorf("failed to fetch channel history: %w", err)
		}
		t.lines = append(t.lines, formatTranscriptLine(msg, m.location))
		t.attachments = append(t.attachments, msg.Attachments...)
	}
	return t, nil
}

// buildArchive writes every attachment as attachment-<index><ext>, in the
// order they appear, followed by transcript.txt.
func (m *Manager) buildArchive(ctx context.Context, t *transcript) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for i, a := range t.attachments {
		body, err := m.discord.DownloadAttachment(ctx, a)
		if err != nil {
			return nil, fmt.Errorf("failed to download attachment %s: %w", a.ID, err)
		}
		if err := writeEntry(zw, fmt.Sprintf("attachment-%d%s", i, path.Ext(a.Filename)), body); err != nil {
			return nil, err
		}
	}
	if err := writeEntry(zw, transcriptEntryName, []byte(strings.Join(t.lines, "\n"))); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeEntry(zw *zip.Writer, name string, body []byte) error {
	w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
	if err != nil {
		return err
	}
	_, err = w.Write(body)
	return err
}

func archiveFilename(t *repository.Ticket) string {
	if t.Issue == "" {
		return fmt.Sprintf("transcript-%d.zip", t.ID)
	}
	return fmt.Sprintf("transcript-%d-%s.zip", t.ID, t.Issue)
}
