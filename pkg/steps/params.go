package steps

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"
)

const (
	defaultNmapPorts    = "80,443,21,22,23,25,110,139,445,3389"
	defaultMasscanPorts = "1-65535"
	defaultDepth        = 1
	defaultAggression   = 3
)

// Params is the typed parameter record of one step kind. The set of
// implementations is closed.
type Params interface {
	Kind() Kind
	common() Common
}

// Common holds parameters every kind accepts.
type Common struct {
	// Timeout of zero means the configured default.
	Timeout time.Duration
}

func (c Common) common() Common { return c }

// SubdomainsParams configures recon_subdomains.
type SubdomainsParams struct{ Common }

// ProbeParams configures recon_probe. Zero values take config defaults.
type ProbeParams struct {
	Common
	Threads int
}

// NmapParams configures scan_nmap. Fast wins when both Fast and Full are set.
type NmapParams struct {
	Common
	Ports  string
	Fast   bool
	Full   bool
	Timing string // T0..T5; empty means config safe_defaults.nmap_timing
}

// MasscanParams configures scan_masscan.
type MasscanParams struct {
	Common
	Ports string
	Rate  int
}

// WebDirsParams configures web_dirs.
type WebDirsParams struct {
	Common
	URL      string
	Wordlist string
	Threads  int
	Depth    int
}

// WebCMSParams configures web_cms.
type WebCMSParams struct {
	Common
	URL        string
	Aggression int
}

func (SubdomainsParams) Kind() Kind { return KindSubdomains }
func (ProbeParams) Kind() Kind      { return KindProbe }
func (NmapParams) Kind() Kind       { return KindNmap }
func (MasscanParams) Kind() Kind    { return KindMasscan }
func (WebDirsParams) Kind() Kind    { return KindWebDirs }
func (WebCMSParams) Kind() Kind     { return KindWebCMS }

var timingRe = regexp.MustCompile(`^T?[0-5]$`)

// parseParams decodes raw into the typed record for k.
func parseParams(k Kind, raw map[string]any) (Params, error) {
	r := &paramReader{raw: raw}
	var c Common
	r.duration("timeout", &c.Timeout)

	var p Params
	switch k {
	case KindSubdomains:
		p = SubdomainsParams{Common: c}
	case KindProbe:
		v := ProbeParams{Common: c}
		r.positiveInt("threads", &v.Threads)
		p = v
	case KindNmap:
		v := NmapParams{Common: c, Ports: defaultNmapPorts}
		r.nonEmptyString("ports", &v.Ports)
		r.bool("fast", &v.Fast)
		r.bool("full", &v.Full)
		r.nonEmptyString("timing", &v.Timing)
		if v.Timing != "" {
			if !timingRe.MatchString(v.Timing) {
				r.fail("timing: want T0..T5, got %q", v.Timing)
			} else if !strings.HasPrefix(v.Timing, "T") {
				v.Timing = "T" + v.Timing
			}
		}
		p = v
	case KindMasscan:
		v := MasscanParams{Common: c, Ports: defaultMasscanPorts}
		r.nonEmptyString("ports", &v.Ports)
		r.positiveInt("rate", &v.Rate)
		p = v
	case KindWebDirs:
		v := WebDirsParams{Common: c, Depth: defaultDepth}
		r.nonEmptyString("url", &v.URL)
		r.nonEmptyString("wordlist", &v.Wordlist)
		r.positiveInt("threads", &v.Threads)
		r.positiveInt("depth", &v.Depth)
		p = v
	case KindWebCMS:
		v := WebCMSParams{Common: c, Aggression: defaultAggression}
		r.nonEmptyString("url", &v.URL)
		r.positiveInt("aggression", &v.Aggression)
		if v.Aggression > 4 {
			r.fail("aggression: want 1..4, got %d", v.Aggression)
		}
		p = v
	default:
		return nil, &UnknownStepError{Name: k.String()}
	}

	if problems := r.finish(); len(problems) > 0 {
		return nil, &ParamError{Step: k.String(), Problems: problems}
	}
	return p, nil
}

// paramReader pulls typed values out of a raw parameter map and collects
// every problem instead of stopping at the first.
type paramReader struct {
	raw      map[string]any
	problems []string
}

func (r *paramReader) fail(format string, args ...any) {
	r.problems = append(r.problems, fmt.Sprintf(format, args...))
}

func (r *paramReader) get(key string) (any, bool) {
	v, ok := r.raw[key]
	return v, ok && v != nil
}

func (r *paramReader) nonEmptyString(key string, dst *string) {
	v, ok := r.get(key)
	if !ok {
		return
	}
	switch v.(type) {
	case bool, map[string]any, []any:
		r.fail("%s: want string, got %T", key, v)
		return
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		r.fail("%s: %v", key, err)
		return
	}
	if s = strings.TrimSpace(s); s == "" {
		r.fail("%s: must not be empty", key)
		return
	}
	*dst = s
}

func (r *paramReader) positiveInt(key string, dst *int) {
	v, ok := r.get(key)
	if !ok {
		return
	}
	if _, isBool := v.(bool); isBool {
		r.fail("%s: want integer, got bool", key)
		return
	}
	n, err := cast.ToIntE(v)
	if err != nil {
		r.fail("%s: want integer, got %v", key, v)
		return
	}
	if n <= 0 {
		r.fail("%s: must be positive, got %d", key, n)
		return
	}
	*dst = n
}

func (r *paramReader) bool(key string, dst *bool) {
	v, ok := r.get(key)
	if !ok {
		return
	}
	b, err := cast.ToBoolE(v)
	if err != nil {
		r.fail("%s: want boolean, got %v", key, v)
		return
	}
	*dst = b
}

// duration accepts a Go duration string or a number of seconds.
func (r *paramReader) duration(key string, dst *time.Duration) {
	v, ok := r.get(key)
	if !ok {
		return
	}
	var d time.Duration
	switch val := v.(type) {
	case bool:
		r.fail("%s: want duration, got bool", key)
		return
	case string:
		s := strings.TrimSpace(val)
		if secs, err := strconv.Atoi(s); err == nil {
			d = time.Duration(secs) * time.Second
		} else if parsed, err := time.ParseDuration(s); err == nil {
			d = parsed
		} else {
			r.fail("%s: invalid duration %q", key, val)
			return
		}
	default:
		secs, err := cast.ToFloat64E(val)
		if err != nil {
			r.fail("%s: want duration, got %T", key, v)
			return
		}
		d = time.Duration(secs * float64(time.Second))
	}
	if d <= 0 {
		r.fail("%s: must be positive", key)
		return
	}
	*dst = d
}

// finish returns the problems collected so far. Unread keys are not
// problems; UnknownParams reports them.
func (r *paramReader) finish() []string {
	return r.problems
}

// UnknownParams lists, sorted, the keys of raw that the named step does not
// accept. Such keys are ignored when the step runs.
func UnknownParams(name string, raw map[string]any) []string {
	k, ok := ParseKind(name)
	if !ok || len(raw) == 0 {
		return nil
	}
	known := make(map[string]bool)
	for _, d := range k.Params() {
		known[d.Name] = true
	}
	var unknown []string
	for key := range raw {
		if !known[key] {
			unknown = append(unknown, key)
		}
	}
	sort.Strings(unknown)
	return unknown
}
