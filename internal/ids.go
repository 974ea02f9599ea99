package internal

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// VideoID identifies a YouTube video. CategoryID identifies a user-defined
// learning category. They are distinct types so one can never be passed where
// the other is expected.
type VideoID string

type CategoryID string

func (id VideoID) String() string    { return string(id) }
func (id CategoryID) String() string { return string(id) }

var videoIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

// IsValidVideoID checks if a string looks like a valid YouTube video ID.
func IsValidVideoID(id string) bool {
	return videoIDPattern.MatchString(id)
}

// ParseVideoArg normalizes a YouTube URL or bare video ID into a VideoID.
func ParseVideoArg(arg string) (VideoID, error) {
	arg = strings.TrimSpace(arg)

	if IsValidVideoID(arg) {
		return VideoID(arg), nil
	}

	if strings.HasPrefix(arg, "https://") || strings.HasPrefix(arg, "http://") {
		id, err := videoIDFromURL(arg)
		if err != nil {
			return "", err
		}
		return VideoID(id), nil
	}

	return "", fmt.Errorf("'%s' doesn't look like a YouTube URL or video ID", arg)
}

// videoIDFromURL extracts the video ID from the common YouTube URL shapes.
func videoIDFromURL(youtubeURL string) (string, error) {
	u, err := url.Parse(youtubeURL)
	if err != nil {
		return "", fmt.Errorf("parsing URL: %w", err)
	}

	host := strings.TrimPrefix(u.Host, "www.")
	if host != "youtube.com" && host != "youtu.be" && host != "m.youtube.com" {
		return "", fmt.Errorf("not a YouTube URL: %s", youtubeURL)
	}

	if v := u.Query().Get("v"); v != "" {
		if !IsValidVideoID(v) {
			return "", fmt.Errorf("invalid video ID in URL: %s", v)
		}
		return v, nil
	}

	// youtu.be/<id>, /shorts/<id>, /embed/<id>
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) > 0 {
		last := parts[len(parts)-1]
		if IsValidVideoID(last) {
			return last, nil
		}
	}

	return "", fmt.Errorf("could not extract video ID from URL: %s", youtubeURL)
}

// WatchURL returns the canonical watch page URL for a video.
func (id VideoID) WatchURL() string {
	return "https://www.youtube.com/watch?v=" + string(id)
}
