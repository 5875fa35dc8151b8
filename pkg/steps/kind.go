// Package steps is the closed registry of workflow step kinds. Each kind has
// a typed parameter record and resolves to exactly one providers.CommandSpec.
package steps

// Kind enumerates the registered step kinds.
type Kind int

const (
	KindSubdomains Kind = iota + 1
	KindProbe
	KindNmap
	KindMasscan
	KindWebDirs
	KindWebCMS
)

// ParamDoc describes one step parameter.
type ParamDoc struct {
	Name        string `json:"name"`
	Type        string `json:"type"` // string, int, bool or duration
	Default     string `json:"default,omitempty"`
	Description string `json:"description"`
}

type kindInfo struct {
	name      string
	tool      string
	summary   string
	scope     bool
	intrusive bool
	artifact  string
	params    []ParamDoc
}

var timeoutDoc = ParamDoc{Name: "timeout", Type: "duration", Description: "per-step timeout (e.g. 90s, or integer seconds)"}

var kinds = map[Kind]kindInfo{
	KindSubdomains: {
		name: "recon_subdomains", tool: "subfinder", scope: true, artifact: SubdomainsFile,
		summary: "passive subdomain enumeration",
	},
	KindProbe: {
		name: "recon_probe", tool: "httpx", artifact: LiveHostsFile,
		summary: "probe enumerated subdomains for live HTTP services",
		params: []ParamDoc{
			{Name: "threads", Type: "int", Default: "config concurrency", Description: "httpx thread count"},
		},
	},
	KindNmap: {
		name: "scan_nmap", tool: "nmap", scope: true, intrusive: true, artifact: NmapBase,
		summary: "targeted nmap port scan",
		params: []ParamDoc{
			{Name: "ports", Type: "string", Default: defaultNmapPorts, Description: "port list passed to -p"},
			{Name: "fast", Type: "bool", Default: "false", Description: "fast profile (-T4)"},
			{Name: "full", Type: "bool", Default: "false", Description: "full profile (-sC -sV -O -A -T3)"},
			{Name: "timing", Type: "string", Default: "config nmap_timing", Description: "timing template T0..T5 for the default profile"},
		},
	},
	KindMasscan: {
		name: "scan_masscan", tool: "masscan", scope: true, intrusive: true, artifact: MasscanFile,
		summary: "fast masscan sweep",
		params: []ParamDoc{
			{Name: "ports", Type: "string", Default: defaultMasscanPorts, Description: "port range passed to -p"},
			{Name: "rate", Type: "int", Default: "config masscan_rate", Description: "packets per second"},
		},
	},
	KindWebDirs: {
		name: "web_dirs", tool: "ffuf", scope: true, intrusive: true, artifact: FfufFile,
		summary: "directory brute forcing",
		params: []ParamDoc{
			{Name: "url", Type: "string", Default: "https://<target>", Description: "base URL"},
			{Name: "wordlist", Type: "string", Default: "config wordlist", Description: "wordlist path"},
			{Name: "threads", Type: "int", Default: "config concurrency", Description: "ffuf thread count"},
			{Name: "depth", Type: "int", Default: "1", Description: "recursion depth"},
		},
	},
	KindWebCMS: {
		name: "web_cms", tool: "whatweb", scope: true, artifact: WhatwebFile,
		summary: "CMS and technology fingerprinting",
		params: []ParamDoc{
			{Name: "url", Type: "string", Default: "https://<target>", Description: "base URL"},
			{Name: "aggression", Type: "int", Default: "3", Description: "whatweb aggression level 1..4"},
		},
	},
}

var kindsByName = func() map[string]Kind {
	m := make(map[string]Kind, len(kinds))
	for k, info := range kinds {
		m[info.name] = k
	}
	return m
}()

// ParseKind returns the kind registered under name.
func ParseKind(name string) (Kind, bool) {
	k, ok := kindsByName[name]
	return k, ok
}

// Kinds returns every registered kind in declaration order.
func Kinds() []Kind {
	return []Kind{KindSubdomains, KindProbe, KindNmap, KindMasscan, KindWebDirs, KindWebCMS}
}

// Names returns the registered step names in declaration order.
func Names() []string {
	out := make([]string, 0, len(kinds))
	for _, k := range Kinds() {
		out = append(out, k.String())
	}
	return out
}

func (k Kind) String() string {
	if info, ok := kinds[k]; ok {
		return info.name
	}
	return "unknown"
}

// Tool is the config tool key the kind runs.
func (k Kind) Tool() string { return kinds[k].tool }

// Summary is a one-line description.
func (k Kind) Summary() string { return kinds[k].summary }

// RequiresScope reports whether the kind touches the target directly.
func (k Kind) RequiresScope() bool { return kinds[k].scope }

// Intrusive reports whether the kind needs execution confirmation.
func (k Kind) Intrusive() bool { return kinds[k].intrusive }

// Artifact is the workspace file (or file base name, for nmap) the kind writes.
func (k Kind) Artifact() string { return kinds[k].artifact }

// Params documents the kind's parameters, timeout included.
func (k Kind) Params() []ParamDoc {
	docs := append([]ParamDoc(nil), kinds[k].params...)
	return append(docs, timeoutDoc)
}
