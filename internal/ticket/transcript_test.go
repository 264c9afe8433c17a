package ticket

import (
	"testing"
	"time"

	"github.com/foxseedlab/pwbot/internal/discord"
	"github.com/foxseedlab/pwbot/internal/repository"
)

func TestFormatTranscriptLine_UsesLocation(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		t.Skipf("timezone data unavailable: %v", err)
	}
	msg := discord.Message{
		AuthorID:   "user-a",
		AuthorName: "alice",
		Content:    "hello",
		Timestamp:  time.Date(2026, 12, 31, 20, 0, 0, 0, time.UTC),
	}
	got := formatTranscriptLine(msg, loc)
	if got != "[2027 Jan 01 05:00:00] alice (user-a): hello" {
		t.Fatalf("unexpected line: %q", got)
	}
}

func TestArchiveFilename(t *testing.T) {
	if got := archiveFilename(&repository.Ticket{ID: 3}); got != "transcript-3.zip" {
		t.Fatalf("unexpected filename: %s", got)
	}
	if got := archiveFilename(&repository.Ticket{ID: 3, Issue: "spam"}); got != "transcript-3-spam.zip" {
		t.Fatalf("unexpected filename: %s", got)
	}
}

func TestTruncateIssue_CountsRunes(t *testing.T) {
	long := ""
	for range 95 {
		long += "é"
	}
	if got := []rune(truncateIssue(long)); len(got) != 90 {
		t.Fatalf("expected 90 runes, got %d", len(got))
	}
	if truncateIssue("short") != "short" {
		t.Fatal("expected short issue unchanged")
	}
}
