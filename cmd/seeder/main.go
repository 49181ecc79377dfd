// Command seeder writes sample channel export files for demos and manual runs.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"iter"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

var sentences = []string{
	"Morning all, the standup notes are pinned in this channel.",
	"Has anyone tried the new release candidate on ARM yet?",
	"lol",
	"The deploy pipeline failed again on the integration step.",
	"I think the flaky test is the one that talks to the cache.",
	"Retrying the job fixed it, but we should track down the race.",
	"Who is bringing snacks to the meetup on Friday?",
	"The docs for the search command are out of date.",
	"+1",
	"Reminder: office hours are moved to Thursday this week.",
	"Can someone review my pull request for the config loader?",
	"The staging database is running out of disk space.",
	"Welcome to the server! Please read the rules channel first.",
	"Found a typo in the onboarding guide, fixing it now.",
	"The rate limiter is rejecting requests from the bot account.",
	"ok",
	"Lunch plans: tacos at noon, meet in the lobby.",
	"The vector index rebuild took four minutes on the full export.",
	"Has anyone seen the keyboard that was left in room 3?",
	"New contributors: the good first issue label is a great start.",
	"The build is green again after reverting the dependency bump.",
	"We hit the embedding service quota around midnight.",
	"Please keep memes in the random channel, thanks!",
	"Our community call recording is up on the wiki.",
	"Trying out the qdrant backend for the search demo today.",
	"The migration script needs a dry run flag.",
	"Happy birthday to our favorite moderator!",
	"The export from last week is missing the pinned messages.",
	"I can reproduce the timezone bug with naive timestamps.",
	"Voting for the next hack week theme closes tomorrow.",
	"thanks!",
	"Release notes draft is ready for review.",
	"The bot keeps reconnecting every few minutes.",
	"Anyone up for a late night pairing session?",
	"Search results look much better with the smaller model.",
	"The wiki page on safety classification needs examples.",
}

var authors = []string{"alice", "bob", "carol", "dave", "erin"}

var (
	seedFileName = flag.String("src", "", "file of seed messages, one per line")
	outDir       = flag.String("out", "./exports", "directory to write export files to")
	channelList  = flag.String("channels", "general,dev,random", "comma-separated channel names")
	startTime    = flag.String("start", "2024-01-15T09:00:00+00:00", "timestamp of the first message")
)

func init() {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	slog.SetDefault(slog.New(handler))
}

type exportFile struct {
	Channel  exportChannel   `json:"channel"`
	Messages []exportMessage `json:"messages"`
}

type exportChannel struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category"`
	Topic    string `json:"topic"`
}

type exportMessage struct {
	ID          string             `json:"id"`
	Author      exportAuthor       `json:"author"`
	Content     string             `json:"content"`
	Timestamp   string             `json:"timestamp"`
	Reference   *exportReference   `json:"reference,omitempty"`
	Attachments []exportAttachment `json:"attachments"`
	Reactions   []exportReaction   `json:"reactions"`
	IsPinned    bool               `json:"isPinned"`
}

type exportAuthor struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type exportReference struct {
	MessageID string `json:"messageId"`
}

type exportAttachment struct {
	URL      string `json:"url"`
	FileName string `json:"fileName"`
}

type exportReaction struct {
	Emoji string `json:"emoji"`
	Count int    `json:"count"`
}

// linesFromFile returns an iterator over lines in a file.
func linesFromFile(filename string) (iter.Seq[string], error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}

	return func(yield func(string) bool) {
		defer f.Close()
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			if !yield(scanner.Text()) {
				return
			}
		}
	}, nil
}

// linesFromSlice returns an iterator over a slice of strings.
func linesFromSlice(lines []string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, line := range lines {
			if !yield(line) {
				return
			}
		}
	}
}

// buildExports deals lines round-robin over channels. Every message is
// spaced seven minutes after the previous one; every fifth replies to the
// message before it in the same channel.
func buildExports(source iter.Seq[string], channels []string, start time.Time) []*exportFile {
	files := make([]*exportFile, len(channels))
	for i, name := range channels {
		files[i] = &exportFile{Channel: exportChannel{
			ID:       fmt.Sprintf("%d", 1000+i),
			Name:     name,
			Category: "Community",
			Topic:    "Talk about " + name,
		}}
	}

	n := 0
	for line := range source {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		file := files[n%len(files)]
		author := authors[n%len(authors)]

		msg := exportMessage{
			ID:          fmt.Sprintf("%d", 900000+n),
			Author:      exportAuthor{ID: fmt.Sprintf("u-%s", author), Name: author},
			Content:     line,
			Timestamp:   start.Add(time.Duration(n) * 7 * time.Minute).Format("2006-01-02T15:04:05.000-07:00"),
			Attachments: []exportAttachment{},
			Reactions:   []exportReaction{},
			IsPinned:    n == 0,
		}
		if prev := len(file.Messages); prev > 0 && n%5 == 4 {
			msg.Reference = &exportReference{MessageID: file.Messages[prev-1].ID}
		}
		if n%3 == 0 {
			msg.Reactions = append(msg.Reactions, exportReaction{Emoji: "👍", Count: 1 + n%4})
		}
		if n%7 == 0 {
			msg.Attachments = append(msg.Attachments, exportAttachment{
				URL:      fmt.Sprintf("https://cdn.example.com/%d.png", n),
				FileName: fmt.Sprintf("%d.png", n),
			})
		}

		file.Messages = append(file.Messages, msg)
		n++
	}
	return files
}

func writeExports(dir string, files []*exportFile) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for _, f := range files {
		data, err := json.MarshalIndent(f, "", "  ")
		if err != nil {
			return err
		}
		path := filepath.Join(dir, f.Channel.Name+".json")
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return err
		}
		slog.Info("wrote export", "path", path, "messages", len(f.Messages))
	}
	return nil
}

func main() {
	flag.Parse()

	start, err := time.Parse(time.RFC3339, *startTime)
	if err != nil {
		panic(err)
	}

	channels := strings.Split(*channelList, ",")
	if len(channels) == 0 || channels[0] == "" {
		panic("at least one channel is required")
	}

	// Determine source of seed data
	var source iter.Seq[string]
	if *seedFileName != "" {
		source, err = linesFromFile(*seedFileName)
		if err != nil {
			panic(err)
		}
	} else {
		source = linesFromSlice(sentences)
	}

	if err := writeExports(*outDir, buildExports(source, channels, start)); err != nil {
		panic(err)
	}
}
