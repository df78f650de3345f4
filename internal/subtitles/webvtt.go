package subtitles

import (
	"bytes"
	"fmt"

	"github.com/asticode/go-astisub"
)

// ToWebVTT converts SRT bytes to WebVTT for an HTML track element.
func ToWebVTT(raw []byte) ([]byte, error) {
	subtitle, err := astisub.ReadFromSRT(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("read srt: %w", err)
	}
	var buf bytes.Buffer
	if err := subtitle.WriteToWebVTT(&buf); err != nil {
		return nil, fmt.Errorf("write webvtt: %w", err)
	}
	return buf.Bytes(), nil
}
