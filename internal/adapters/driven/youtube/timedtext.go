package youtube

import (
	"encoding/xml"
	"html"
	"strconv"
	"strings"
	"time"

	"github.com/custodia-labs/ragtube/internal/core/domain"
)

// timedText covers both timedtext XML formats: the legacy
// <transcript><text start dur> and format 3 <timedtext><body><p t d>.
type timedText struct {
	Lines []struct {
		Start string `xml:"start,attr"`
		Dur   string `xml:"dur,attr"`
		Text  string `xml:",chardata"`
	} `xml:"text"`
	Body struct {
		Paragraphs []struct {
			T     string `xml:"t,attr"`
			D     string `xml:"d,attr"`
			Text  string `xml:",chardata"`
			Spans []struct {
				Text string `xml:",chardata"`
			} `xml:"s"`
		} `xml:"p"`
	} `xml:"body"`
}

// parseTimedText converts timedtext XML into segments, dropping empty cues.
func parseTimedText(data []byte) ([]domain.Segment, error) {
	var tt timedText
	if err := xml.Unmarshal(data, &tt); err != nil {
		return nil, err
	}

	var segments []domain.Segment
	for _, line := range tt.Lines {
		text := cleanText(line.Text)
		if text == "" {
			continue
		}
		segments = append(segments, domain.Segment{
			Text:     text,
			Start:    seconds(line.Start),
			Duration: seconds(line.Dur),
		})
	}

	for _, p := range tt.Body.Paragraphs {
		raw := p.Text
		for _, s := range p.Spans {
			raw += s.Text
		}
		text := cleanText(raw)
		if text == "" {
			continue
		}
		segments = append(segments, domain.Segment{
			Text:     text,
			Start:    millis(p.T),
			Duration: millis(p.D),
		})
	}

	return segments, nil
}

// cleanText undoes the second level of entity escaping YouTube applies and
// collapses whitespace.
func cleanText(s string) string {
	return strings.Join(strings.Fields(html.UnescapeString(s)), " ")
}

func seconds(s string) time.Duration {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f < 0 {
		return 0
	}
	return time.Duration(f * float64(time.Second)).Round(time.Millisecond)
}

func millis(s string) time.Duration {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n < 0 {
		return 0
	}
	return time.Duration(n) * time.Millisecond
}
