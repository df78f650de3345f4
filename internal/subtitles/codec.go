package subtitles

import "strings"

// Kind separates subtitle codecs that can be decoded to text from bitmap codecs.
type Kind string

const (
	KindUnknown Kind = ""
	KindText    Kind = "text"
	KindImage   Kind = "image"
)

var codecKinds = map[string]Kind{
	"srt":               KindText,
	"subrip":            KindText,
	"ass":               KindText,
	"ssa":               KindText,
	"mov_text":          KindText,
	"tx3g":              KindText,
	"webvtt":            KindText,
	"vtt":               KindText,
	"text":              KindText,
	"smi":               KindText,
	"pgs":               KindImage,
	"hdmv_pgs_subtitle": KindImage,
	"vobsub":            KindImage,
	"dvd_subtitle":      KindImage,
	"dvdsub":            KindImage,
	"dvb_subtitle":      KindImage,
	"dvbsub":            KindImage,
	"xsub":              KindImage,
}

// ClassifyCodec maps a media-server or ffprobe codec name to its Kind.
// Unrecognised names yield KindUnknown.
func ClassifyCodec(codec string) Kind {
	return codecKinds[strings.ToLower(strings.TrimSpace(codec))]
}
