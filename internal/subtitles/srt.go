package subtitles

import (
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"plexgif/internal/logging"
)

// Cue is one timed caption.
type Cue struct {
	Index int
	Start time.Duration
	End   time.Duration
	Text  string
}

// Parse reads SRT content into cues sorted by start time. Blocks without a
// valid timing line are skipped. Empty or entirely unparseable input yields
// an empty slice and a warning; Parse never fails.
func Parse(raw []byte, logger *slog.Logger) []Cue {
	logger = logging.NewComponentLogger(logger, "subtitles")
	content := strings.TrimPrefix(string(raw), "\ufeff")
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")

	blocks := splitBlocks(content)
	cues := make([]Cue, 0, len(blocks))
	skipped := 0
	for _, block := range blocks {
		cue, ok := parseBlock(block, len(cues)+1)
		if !ok {
			skipped++
			continue
		}
		cues = append(cues, cue)
	}
	sort.SliceStable(cues, func(i, j int) bool { return cues[i].Start < cues[j].Start })

	if len(cues) == 0 {
		logging.WarnWithContext(logger, "no captions parsed", "subtitle_parse_empty",
			logging.Int("bytes", len(raw)),
			logging.Int("skipped_blocks", skipped),
			logging.String(logging.FieldErrorHint, "the subtitle payload is empty or not SRT"),
			logging.String(logging.FieldImpact, "caption preview is empty"),
		)
		return cues
	}
	if skipped > 0 {
		logger.Debug("skipped malformed caption blocks", logging.Int("skipped_blocks", skipped), logging.Int("cues", len(cues)))
	}
	return cues
}

func splitBlocks(content string) []string {
	var (
		blocks  []string
		current []string
	)
	flush := func() {
		if len(current) > 0 {
			blocks = append(blocks, strings.Join(current, "\n"))
			current = nil
		}
	}
	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		current = append(current, line)
	}
	flush()
	return blocks
}

func parseBlock(block string, fallbackIndex int) (Cue, bool) {
	lines := strings.Split(block, "\n")
	cue := Cue{Index: fallbackIndex}
	pos := 0
	if !strings.Contains(lines[0], "-->") {
		n, err := strconv.Atoi(strings.TrimSpace(lines[0]))
		if err != nil {
			return Cue{}, false
		}
		cue.Index = n
		pos = 1
	}
	if pos >= len(lines) {
		return Cue{}, false
	}
	start, end, err := parseTiming(lines[pos])
	if err != nil || end < start {
		return Cue{}, false
	}
	cue.Start, cue.End = start, end

	text := make([]string, 0, len(lines)-pos-1)
	for _, line := range lines[pos+1:] {
		text = append(text, strings.TrimRight(line, " \t"))
	}
	cue.Text = strings.Join(text, "\n")
	return cue, true
}

func parseTiming(line string) (time.Duration, time.Duration, error) {
	parts := strings.SplitN(line, "-->", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("missing arrow in %q", line)
	}
	endFields := strings.Fields(parts[1])
	if len(endFields) == 0 {
		return 0, 0, fmt.Errorf("missing end timestamp in %q", line)
	}
	start, err := ParseTimestamp(parts[0])
	if err != nil {
		return 0, 0, err
	}
	end, err := ParseTimestamp(endFields[0])
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

// ParseTimestamp reads HH:MM:SS,mmm. A period is accepted in place of the
// comma. Fractions shorter than three digits are tenths or hundredths.
func ParseTimestamp(value string) (time.Duration, error) {
	value = strings.ReplaceAll(strings.TrimSpace(value), ".", ",")
	if value == "" {
		return 0, fmt.Errorf("empty timestamp")
	}
	clock, fraction, ok := strings.Cut(value, ",")
	if !ok {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hms := strings.Split(clock, ":")
	if len(hms) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hours, errH := strconv.Atoi(hms[0])
	minutes, errM := strconv.Atoi(hms[1])
	seconds, errS := strconv.Atoi(hms[2])
	if fraction == "" || len(fraction) > 3 || strings.Trim(fraction, "0123456789") != "" {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	millis, errMS := strconv.Atoi(fraction + strings.Repeat("0", 3-len(fraction)))
	if errH != nil || errM != nil || errS != nil || errMS != nil {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	if hours < 0 || minutes < 0 || minutes > 59 || seconds < 0 || seconds > 59 {
		return 0, fmt.Errorf("timestamp out of range %q", value)
	}
	return time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds)*time.Second +
		time.Duration(millis)*time.Millisecond, nil
}
