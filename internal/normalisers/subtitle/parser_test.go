package subtitle

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/ragtube/internal/core/domain"
)

const sampleVTT = `WEBVTT
Kind: captions
Language: en

NOTE generated by a captioning tool

1
00:00:01.000 --> 00:00:03.500 align:start position:0%
Hello <c.colorE5E5E5>and</c> welcome

00:00:03.500 --> 00:00:06.000
<v Speaker>to the channel</v>
today

00:00:06.000 --> 00:00:07.000
to the channel today
`

const sampleSRT = `1
00:00:00,000 --> 00:00:01,830
I'm happy to
have you here today.

2
00:00:01,910 --> 00:00:03,610
As I'm sure you're all

3
00:01:05,100 --> 00:01:07,000
aware.
`

func TestParse_VTT(t *testing.T) {
	segments, err := Parse(strings.NewReader(sampleVTT), FormatVTT)
	require.NoError(t, err)

	require.Len(t, segments, 2)
	assert.Equal(t, "Hello and welcome", segments[0].Text)
	assert.Equal(t, time.Second, segments[0].Start)
	assert.Equal(t, 2500*time.Millisecond, segments[0].Duration)

	// rolling duplicate cue is merged into the previous one
	assert.Equal(t, "to the channel today", segments[1].Text)
	assert.Equal(t, 3500*time.Millisecond, segments[1].Start)
	assert.Equal(t, 3500*time.Millisecond, segments[1].Duration)
}

func TestParse_SRT(t *testing.T) {
	segments, err := Parse(strings.NewReader(sampleSRT), FormatSRT)
	require.NoError(t, err)

	require.Len(t, segments, 3)
	assert.Equal(t, "I'm happy to have you here today.", segments[0].Text)
	assert.Equal(t, time.Duration(0), segments[0].Start)
	assert.Equal(t, 1830*time.Millisecond, segments[0].Duration)
	assert.Equal(t, "As I'm sure you're all", segments[1].Text)
	assert.Equal(t, time.Minute+5100*time.Millisecond, segments[2].Start)
}

func TestParse_VTTWithoutBlankAfterHeader(t *testing.T) {
	input := "WEBVTT\n00:00:02.000 --> 00:00:04.000\nfirst line\n"

	segments, err := Parse(strings.NewReader(input), FormatVTT)
	require.NoError(t, err)

	require.Len(t, segments, 1)
	assert.Equal(t, "first line", segments[0].Text)
	assert.Equal(t, 2*time.Second, segments[0].Start)
}

func TestParse_Empty(t *testing.T) {
	segments, err := Parse(strings.NewReader(""), FormatSRT)
	require.NoError(t, err)
	assert.Empty(t, segments)
}

func TestParse_BadTiming(t *testing.T) {
	_, err := Parse(strings.NewReader("1\nnot --> valid\ntext\n"), FormatSRT)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestParse_UnknownFormat(t *testing.T) {
	_, err := Parse(strings.NewReader(""), Format("ass"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"00:00:00.000", 0},
		{"00:01:30.500", 90*time.Second + 500*time.Millisecond},
		{"01:02:03,004", time.Hour + 2*time.Minute + 3*time.Second + 4*time.Millisecond},
		{"02:15.250", 2*time.Minute + 15*time.Second + 250*time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTimestamp(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, bad := range []string{"", "12", "aa:bb", "1:2:3:4"} {
		_, err := ParseTimestamp(bad)
		assert.Error(t, err, bad)
	}
}

func TestFormatFromPath(t *testing.T) {
	f, err := FormatFromPath("/tmp/dQw4w9WgXcQ.en.vtt")
	require.NoError(t, err)
	assert.Equal(t, FormatVTT, f)

	f, err = FormatFromPath("talk.SRT")
	require.NoError(t, err)
	assert.Equal(t, FormatSRT, f)

	_, err = FormatFromPath("notes.txt")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Equal(t, []string{".vtt", ".srt"}, Extensions())
}

func TestFileParser(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "talk.SRT")
	require.NoError(t, os.WriteFile(path, []byte("1\n00:00:01,000 --> 00:00:02,500\nHello there\n"), 0o600))

	p := NewFileParser()
	assert.True(t, p.Supports(path))
	assert.False(t, p.Supports(filepath.Join(dir, "notes.txt")))

	segs, err := p.ParseFile(path)
	require.NoError(t, err)
	require.Len(t, segs, 1)
	assert.Equal(t, "Hello there", segs[0].Text)
	assert.Equal(t, time.Second, segs[0].Start)

	_, err = p.ParseFile(filepath.Join(dir, "missing.vtt"))
	assert.Error(t, err)
}
