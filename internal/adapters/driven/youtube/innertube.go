package youtube

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Innertube ANDROID client constants.
const (
	defaultPlayerURL = "https://www.youtube.com/youtubei/v1/player"
	androidVersion   = "20.10.38"
	androidUserAgent = "com.google.android.youtube/" + androidVersion + " (Linux; U; Android 11) gzip"
)

type playerRequest struct {
	VideoID        string        `json:"videoId"`
	Context        playerContext `json:"context"`
	RacyCheckOk    bool          `json:"racyCheckOk"`
	ContentCheckOk bool          `json:"contentCheckOk"`
}

type playerContext struct {
	Client playerClient `json:"client"`
}

type playerClient struct {
	ClientName        string `json:"clientName"`
	ClientVersion     string `json:"clientVersion"`
	AndroidSdkVersion int    `json:"androidSdkVersion,omitempty"`
	Hl                string `json:"hl,omitempty"`
	Gl                string `json:"gl,omitempty"`
}

func newPlayerRequest(videoID string) playerRequest {
	return playerRequest{
		VideoID: videoID,
		Context: playerContext{
			Client: playerClient{
				ClientName:        "ANDROID",
				ClientVersion:     androidVersion,
				AndroidSdkVersion: 30,
				Hl:                "en",
				Gl:                "US",
			},
		},
		RacyCheckOk:    true,
		ContentCheckOk: true,
	}
}

type playerResponse struct {
	Captions *struct {
		PlayerCaptionsTracklistRenderer struct {
			CaptionTracks []captionTrack `json:"captionTracks"`
		} `json:"playerCaptionsTracklistRenderer"`
	} `json:"captions"`
	PlayabilityStatus *struct {
		Status string `json:"status"`
		Reason string `json:"reason"`
	} `json:"playabilityStatus"`
	VideoDetails *videoDetails `json:"videoDetails"`
}

type videoDetails struct {
	VideoID       string `json:"videoId"`
	Title         string `json:"title"`
	Author        string `json:"author"`
	LengthSeconds string `json:"lengthSeconds"`
}

func (d *videoDetails) duration() time.Duration {
	secs, err := strconv.Atoi(d.LengthSeconds)
	if err != nil {
		return 0
	}
	return time.Duration(secs) * time.Second
}

type captionTrack struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
	Kind         string `json:"kind"` // "asr" = auto-generated
}

func (p *playerResponse) tracks() []captionTrack {
	if p.Captions == nil {
		return nil
	}
	return p.Captions.PlayerCaptionsTracklistRenderer.CaptionTracks
}

// botCheck reports whether the playability status is YouTube's
// "confirm you're not a bot" gate, which clears after backing off.
func (p *playerResponse) botCheck() bool {
	if p.PlayabilityStatus == nil {
		return false
	}
	return p.PlayabilityStatus.Status == "LOGIN_REQUIRED" &&
		strings.Contains(strings.ToLower(p.PlayabilityStatus.Reason), "not a bot")
}

func (p *playerResponse) reason() string {
	if p.PlayabilityStatus == nil {
		return ""
	}
	if p.PlayabilityStatus.Reason != "" {
		return p.PlayabilityStatus.Reason
	}
	return p.PlayabilityStatus.Status
}

func decodePlayer(data []byte) (*playerResponse, error) {
	var resp playerResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// needsPoToken reports whether a caption track URL requires a PoToken.
// Tracks with &exp=xpe cannot be fetched outside a browser.
func needsPoToken(baseURL string) bool {
	return strings.Contains(baseURL, "&exp=xpe")
}

func languageMatches(code, lang string) bool {
	return strings.EqualFold(code, lang) || strings.HasPrefix(strings.ToLower(code), strings.ToLower(lang)+"-")
}

// pickTrack selects the first usable track following the preferred
// languages (manual before auto-generated), then the fallback languages
// in the same manner.
func pickTrack(tracks []captionTrack, preferred, fallback []string) (captionTrack, bool) {
	usable := make([]captionTrack, 0, len(tracks))
	for _, t := range tracks {
		if !needsPoToken(t.BaseURL) && t.BaseURL != "" {
			usable = append(usable, t)
		}
	}

	for _, langs := range [][]string{preferred, fallback} {
		// 1. Manual track
		for _, lang := range langs {
			for _, t := range usable {
				if languageMatches(t.LanguageCode, lang) && t.Kind != "asr" {
					return t, true
				}
			}
		}
		// 2. Auto-generated track
		for _, lang := range langs {
			for _, t := range usable {
				if languageMatches(t.LanguageCode, lang) {
					return t, true
				}
			}
		}
	}
	return captionTrack{}, false
}
