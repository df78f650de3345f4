package plex

import (
	"bytes"
	"encoding/xml"
	"fmt"

	"golang.org/x/net/html/charset"

	"plexgif/internal/services"
)

type mediaContainer struct {
	XMLName     xml.Name       `xml:"MediaContainer"`
	Directories []xmlDirectory `xml:"Directory"`
	Videos      []xmlVideo     `xml:"Video"`
}

type xmlDirectory struct {
	Key       *string `xml:"key,attr"`
	RatingKey string  `xml:"ratingKey,attr"`
	Title     *string `xml:"title,attr"`
	Type      *string `xml:"type,attr"`
}

type xmlVideo struct {
	RatingKey string     `xml:"ratingKey,attr"`
	Title     string     `xml:"title,attr"`
	Duration  *string    `xml:"duration,attr"`
	Media     []xmlMedia `xml:"Media"`
}

type xmlMedia struct {
	Container string    `xml:"container,attr"`
	Parts     []xmlPart `xml:"Part"`
}

type xmlPart struct {
	Key       string      `xml:"key,attr"`
	Container string      `xml:"container,attr"`
	Streams   []xmlStream `xml:"Stream"`
}

type xmlStream struct {
	ID           string `xml:"id,attr"`
	StreamType   string `xml:"streamType,attr"`
	Key          string `xml:"key,attr"`
	Codec        string `xml:"codec,attr"`
	Language     string `xml:"language,attr"`
	LanguageCode string `xml:"languageCode,attr"`
	DisplayTitle string `xml:"displayTitle,attr"`
	Index        string `xml:"index,attr"`
}

// decodeContainer parses a MediaContainer document. Non-UTF-8 declarations are
// handled through x/net's charset reader.
func decodeContainer(payload []byte) (*mediaContainer, error) {
	var doc mediaContainer
	decoder := xml.NewDecoder(bytes.NewReader(payload))
	decoder.CharsetReader = charset.NewReaderLabel
	if err := decoder.Decode(&doc); err != nil {
		return nil, services.Wrap(services.ErrParse, "plex", "decode", fmt.Sprintf("malformed media container (%d bytes)", len(payload)), err)
	}
	return &doc, nil
}

func (v xmlVideo) firstPart() (xmlPart, bool) {
	for _, m := range v.Media {
		if len(m.Parts) > 0 {
			return m.Parts[0], true
		}
	}
	return xmlPart{}, false
}

func (v xmlVideo) streams() []xmlStream {
	var out []xmlStream
	for _, m := range v.Media {
		for _, p := range m.Parts {
			out = append(out, p.Streams...)
		}
	}
	return out
}

type providerContainer struct {
	XMLName xml.Name    `xml:"MediaContainer"`
	Streams []xmlStream `xml:"Stream"`
}

func decodeProviderSearch(payload []byte) (*providerContainer, error) {
	var doc providerContainer
	decoder := xml.NewDecoder(bytes.NewReader(payload))
	decoder.CharsetReader = charset.NewReaderLabel
	if err := decoder.Decode(&doc); err != nil {
		return nil, services.Wrap(services.ErrParse, "plex", "decode", "malformed provider search response", err)
	}
	return &doc, nil
}
