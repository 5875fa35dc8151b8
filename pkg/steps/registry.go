package steps

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"

	"github.com/hackmate/hackmate/pkg/config"
	"github.com/hackmate/hackmate/pkg/providers"
	"github.com/hackmate/hackmate/pkg/workspace"
)

// Artifact file names written into the workspace.
const (
	SubdomainsFile = "subdomains_raw.txt"
	LiveHostsFile  = "live_hosts_raw.txt"
	NmapBase       = "nmap_scan"
	MasscanFile    = "masscan_raw.txt"
	FfufFile       = "ffuf_dirs_raw.txt"
	WhatwebFile    = "whatweb_raw.txt"
)

// Registry resolves step names and parameters into command specs using the
// tool paths and safe defaults of one configuration.
type Registry struct {
	cfg       *config.Config
	extraArgs map[Kind][]*template.Template
}

// TemplateData is the value extra_args templates are executed against.
type TemplateData struct {
	Target    string
	Workspace string
	Params    Params
}

// NewRegistry builds a registry from cfg. Per-step extra_args templates are
// parsed here; a bad template or an override for an unknown step is an error.
func NewRegistry(cfg *config.Config) (*Registry, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	reg := &Registry{cfg: cfg, extraArgs: make(map[Kind][]*template.Template)}
	for name, override := range cfg.Steps {
		k, ok := ParseKind(name)
		if !ok {
			return nil, fmt.Errorf("steps.%s: %w", name, &UnknownStepError{Name: name})
		}
		for i, src := range override.ExtraArgs {
			tmpl, err := template.New(fmt.Sprintf("%s.extra_args[%d]", name, i)).
				Funcs(sprig.TxtFuncMap()).
				Option("missingkey=error").
				Parse(src)
			if err != nil {
				return nil, fmt.Errorf("steps.%s.extra_args[%d]: %w", name, i, err)
			}
			reg.extraArgs[k] = append(reg.extraArgs[k], tmpl)
		}
	}
	return reg, nil
}

// Parse validates raw parameters for the named step.
func (reg *Registry) Parse(name string, raw map[string]any) (Params, error) {
	return ParseParams(name, raw)
}

// ParseParams validates raw parameters for the named step. It needs no
// configuration, so validators can call it without a Registry.
func ParseParams(name string, raw map[string]any) (Params, error) {
	k, ok := ParseKind(name)
	if !ok {
		return nil, &UnknownStepError{Name: name}
	}
	return parseParams(k, raw)
}

// Resolve turns typed parameters into a command spec. The result depends
// only on its inputs and the registry configuration.
func (reg *Registry) Resolve(p Params, target string, ws workspace.Path) (providers.CommandSpec, error) {
	k := p.Kind()
	spec := providers.CommandSpec{
		Tool:          k.Tool(),
		Executable:    reg.cfg.ToolPath(k.Tool()),
		Step:          k.String(),
		Target:        target,
		Timeout:       p.common().Timeout,
		RequiresScope: k.RequiresScope(),
		Intrusive:     k.Intrusive(),
	}

	switch v := p.(type) {
	case SubdomainsParams:
		spec.Args = []string{"-d", target, "-silent"}
		spec.OutputFile = SubdomainsFile
	case ProbeParams:
		spec.Args = []string{
			"-l", ws.Join(SubdomainsFile),
			"-silent", "-status-code", "-title", "-tech-detect",
			"-threads", strconv.Itoa(reg.orConcurrency(v.Threads)),
		}
		spec.OutputFile = LiveHostsFile
	case NmapParams:
		spec.Args = []string{"-p", v.Ports, "-oA", ws.Join(NmapBase), target}
		switch {
		case v.Fast:
			spec.Args = append(spec.Args, "-T4")
		case v.Full:
			spec.Args = append(spec.Args, "-sC", "-sV", "-O", "-A", "-T3")
		default:
			timing := v.Timing
			if timing == "" {
				timing = reg.cfg.SafeDefaults.NmapTiming
			}
			spec.Args = append(spec.Args, "-"+timing, "-sC", "-sV")
		}
	case MasscanParams:
		rate := v.Rate
		if rate == 0 {
			rate = reg.cfg.SafeDefaults.MasscanRate
		}
		spec.Args = []string{target, "-p", v.Ports, "--rate", strconv.Itoa(rate), "-oG", ws.Join(MasscanFile)}
	case WebDirsParams:
		wordlist := v.Wordlist
		if wordlist == "" {
			wordlist = reg.cfg.SafeDefaults.Wordlist
		}
		spec.Args = []string{
			"-u", strings.TrimRight(webURL(v.URL, target), "/") + "/FUZZ",
			"-w", wordlist,
			"-o", ws.Join(FfufFile),
			"-of", "json",
			"-t", strconv.Itoa(reg.orConcurrency(v.Threads)),
			"-recursion",
			"-recursion-depth", strconv.Itoa(v.Depth),
		}
	case WebCMSParams:
		spec.Args = []string{webURL(v.URL, target), "-v", "-a", strconv.Itoa(v.Aggression)}
		spec.OutputFile = WhatwebFile
	default:
		return providers.CommandSpec{}, fmt.Errorf("no command for step kind %s", k)
	}

	extra, err := reg.renderExtraArgs(k, TemplateData{Target: target, Workspace: ws.String(), Params: p})
	if err != nil {
		return providers.CommandSpec{}, err
	}
	spec.Args = append(spec.Args, extra...)
	return spec, nil
}

// Lookup parses and resolves in one call.
func (reg *Registry) Lookup(name string, raw map[string]any, target string, ws workspace.Path) (providers.CommandSpec, error) {
	p, err := reg.Parse(name, raw)
	if err != nil {
		return providers.CommandSpec{}, err
	}
	return reg.Resolve(p, target, ws)
}

func (reg *Registry) orConcurrency(n int) int {
	if n > 0 {
		return n
	}
	return reg.cfg.Concurrency
}

// renderExtraArgs executes the configured templates; empty renderings are dropped.
func (reg *Registry) renderExtraArgs(k Kind, data TemplateData) ([]string, error) {
	var out []string
	for _, tmpl := range reg.extraArgs[k] {
		var buf bytes.Buffer
		if err := tmpl.Execute(&buf, data); err != nil {
			return nil, fmt.Errorf("render %s: %w", tmpl.Name(), err)
		}
		if s := strings.TrimSpace(buf.String()); s != "" {
			out = append(out, s)
		}
	}
	return out, nil
}

func webURL(url, target string) string {
	if url != "" {
		return url
	}
	return "https://" + target
}
