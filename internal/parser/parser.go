// Package parser maps recorded-transmission filenames to partial catalog
// records. It tries a small, hard-coded set of filename grammars — this is
// a compatibility surface for existing data, not a general parsing
// framework (new grammars are added as new package-level grammar values,
// never configured).
package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// PartialRecord is everything the parser can recover from a filename alone.
// Enrichment fields (duration, sha256, transcription) are filled later by
// the indexer.
type PartialRecord struct {
	System    string
	Station   string
	Channel   string
	StartTime time.Time
	FileName  string // filename as parsed; the scanner replaces it with the full path the catalog stores
}

// ErrorKind distinguishes the ways a filename can fail to parse.
type ErrorKind int

const (
	// UnknownFormat means no grammar recognizes the filename's year prefix.
	UnknownFormat ErrorKind = iota
	// MalformedFilename means the year prefix matched a grammar but the
	// rest of the filename did not.
	MalformedFilename
	// NotAudio means the filename does not end in .wav; this is a silent
	// skip, never surfaced as a logged error by callers.
	NotAudio
)

func (k ErrorKind) String() string {
	switch k {
	case UnknownFormat:
		return "UnknownFormat"
	case MalformedFilename:
		return "MalformedFilename"
	case NotAudio:
		return "NotAudio"
	default:
		return "Unknown"
	}
}

// ParseError reports why a filename could not be parsed.
type ParseError struct {
	Kind     ErrorKind
	FileName string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.FileName)
}

// grammar is one named filename format and its compiled pattern; Parse
// applies the field priority rules that assemble a PartialRecord from the
// pattern's named groups.
type grammar struct {
	name    string
	pattern *regexp.Regexp
}

// Grammars are tried in the order the year prefix directs: the 2017, 2023,
// and 2024 filename formats used by the source project across its
// recording seasons.
var (
	grammar2017 = grammar{
		name: "2017",
		pattern: regexp.MustCompile(
			`^(?P<year>\d{4})-(?P<month>\d{2})-(?P<day>\d{2})` +
				` (?P<hour>\d{2})-(?P<minute>\d{2})-(?P<second>\d{2})` +
				` (?P<systemType>Trunk Sys|\w+)` +
				` (?P<systemName>\w+)` +
				`(| Call-)` +
				` (?P<stationType>\w*)` +
				` _(?P<stationName>[^_]+)_` +
				` calls(| group)` +
				` (_(?P<channel1>[^_]+)_|(?P<channel2>all dispatchers))` +
				`.*` +
				`\.wav$`,
		),
	}

	grammar2023 = grammar{
		name: "2023",
		pattern: regexp.MustCompile(
			`^(?P<year>\d{4})-(?P<month>\d{2})-(?P<day>\d{2})` +
				` (?P<hour>\d{2})-(?P<minute>\d{2})-(?P<second>\d{2})` +
				` (?P<systemType>SYSTEM) (?P<systemName>[A-Za-z0-9]+) Group Call-` +
				` '(?P<stationName>[^']+)' called '(?P<channel1>[^']+)'` +
				`.*` +
				`\.wav$`,
		),
	}

	grammar2024 = grammar{
		name: "2024",
		pattern: regexp.MustCompile(
			`^(?P<year>\d{4})-(?P<month>\d{2})-(?P<day>\d{2})` +
				` (?P<hour>\d{2})-(?P<minute>\d{2})-(?P<second>\d{2})` +
				` (?P<channel1>.+) All Call-` +
				` '(?P<stationName>[^']+)' called 'All'` +
				`.*` +
				`\.wav$`,
		),
	}
)

// yearPrefix extracts the leading "NNNN-" from a filename, used to dispatch
// to the right grammar without trying all of them on every file.
var yearPrefix = regexp.MustCompile(`^(\d{4})-`)

// Parse maps a filename to a PartialRecord, or returns a *ParseError.
// Only .wav files are considered for grammar matching; anything else is
// rejected with NotAudio before any grammar runs.
func Parse(filename string, eventID string, loc *time.Location) (*PartialRecord, error) {
	if !strings.HasSuffix(strings.ToLower(filename), ".wav") {
		return nil, &ParseError{Kind: NotAudio, FileName: filename}
	}

	m := yearPrefix.FindStringSubmatch(filename)
	if m == nil {
		return nil, &ParseError{Kind: UnknownFormat, FileName: filename}
	}

	var g grammar
	switch m[1] {
	case "2017":
		g = grammar2017
	case "2023":
		g = grammar2023
	case "2024":
		g = grammar2024
	default:
		return nil, &ParseError{Kind: UnknownFormat, FileName: filename}
	}

	fields := matchFields(g.pattern, filename)
	if fields == nil {
		return nil, &ParseError{Kind: MalformedFilename, FileName: filename}
	}

	startTime, err := assembleStartTime(fields, loc)
	if err != nil {
		return nil, &ParseError{Kind: MalformedFilename, FileName: filename}
	}

	// The 2024 grammar never captures a system name from the filename; it
	// hard-codes one, since the "BRC 911 ALT"-style all-call channel
	// carries no separate system token of its own.
	systemName := fields["systemName"]
	if g.name == "2024" {
		systemName = "911"
	}

	return &PartialRecord{
		System:    buildSystem(fields["systemType"], systemName),
		Station:   buildStation(fields["stationType"], fields["stationName"]),
		Channel:   firstNonEmpty(fields["channel1"], fields["channel2"]),
		StartTime: startTime,
		FileName:  filename,
	}, nil
}

// matchFields runs pattern against s and returns its named capture groups,
// or nil if there was no match. Every named group is present in the map;
// a group that did not participate in the match (an alternation branch not
// taken) maps to the empty string, which firstNonEmpty and the build
// helpers treat as absent.
func matchFields(pattern *regexp.Regexp, s string) map[string]string {
	match := pattern.FindStringSubmatch(s)
	if match == nil {
		return nil
	}
	fields := make(map[string]string, len(match))
	for i, name := range pattern.SubexpNames() {
		if i == 0 || name == "" {
			continue
		}
		fields[name] = match[i]
	}
	return fields
}

// assembleStartTime builds a zone-aware time from the year/month/.../second
// named groups, in the configured local zone.
func assembleStartTime(fields map[string]string, loc *time.Location) (time.Time, error) {
	atoi := func(key string) (int, error) {
		return strconv.Atoi(fields[key])
	}
	year, err := atoi("year")
	if err != nil {
		return time.Time{}, err
	}
	month, err := atoi("month")
	if err != nil {
		return time.Time{}, err
	}
	day, err := atoi("day")
	if err != nil {
		return time.Time{}, err
	}
	hour, err := atoi("hour")
	if err != nil {
		return time.Time{}, err
	}
	minute, err := atoi("minute")
	if err != nil {
		return time.Time{}, err
	}
	second, err := atoi("second")
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(year, time.Month(month), day, hour, minute, second, 0, loc), nil
}

// buildSystem canonicalizes systemType and combines it with systemName.
func buildSystem(systemType, systemName string) string {
	if systemType == "" {
		return "System " + systemName
	}
	switch systemType {
	case "SYSTEM":
		systemType = "Conventional"
	case "Trunk Sys":
		systemType = "Trunk"
	}
	if systemType == systemName {
		return systemName
	}
	return systemType + " " + systemName
}

// buildStation combines stationType and stationName; stationType is often
// an empty capture (e.g. the 2017 "Radio"/"Dispatcher" token is sometimes
// blank), in which case only the name is used.
func buildStation(stationType, stationName string) string {
	if stationType == "" {
		return stationName
	}
	return stationType + " " + stationName
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
