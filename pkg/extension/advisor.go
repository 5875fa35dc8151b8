package extension

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/hackmate/hackmate/pkg/config"
	"github.com/hackmate/hackmate/pkg/steps"
	"github.com/hackmate/hackmate/pkg/workspace"
)

// ErrAdvisorDisabled is returned by NopAdvisor.
var ErrAdvisorDisabled = errors.New("AI is disabled")

// Suggestion is one recommended next step.
type Suggestion struct {
	Step   string
	Reason string
}

// Command renders the suggestion as a CLI invocation.
func (s Suggestion) Command(target string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "hackmate step %s %s", s.Step, target)
	if k, ok := steps.ParseKind(s.Step); ok && k.Intrusive() {
		b.WriteString(" --confirm-scope --execute")
	} else if ok && k.RequiresScope() {
		b.WriteString(" --confirm-scope")
	}
	return b.String()
}

// Advisor suggests what to run next for a target.
type Advisor interface {
	Suggest(ctx context.Context, target string, ws workspace.Path) ([]Suggestion, error)
}

// NopAdvisor never suggests anything.
type NopAdvisor struct{}

func (NopAdvisor) Suggest(context.Context, string, workspace.Path) ([]Suggestion, error) {
	return nil, ErrAdvisorDisabled
}

// ArtifactAdvisor suggests the next step from which artifact files exist in
// the workspace. It looks at file presence only, never at file contents.
type ArtifactAdvisor struct{}

// nmapArtifact is one of the files nmap -oA writes.
var nmapArtifact = steps.NmapBase + ".nmap"

func (ArtifactAdvisor) Suggest(_ context.Context, target string, ws workspace.Path) ([]Suggestion, error) {
	if _, err := ws.Artifacts(); err != nil {
		return nil, err
	}
	var out []Suggestion
	add := func(k steps.Kind, reason string) {
		out = append(out, Suggestion{Step: k.String(), Reason: reason})
	}
	switch {
	case !ws.Has(steps.SubdomainsFile):
		add(steps.KindSubdomains, "no subdomains enumerated yet")
	case !ws.Has(steps.LiveHostsFile):
		add(steps.KindProbe, "subdomains found but not probed for live hosts")
	default:
		if !ws.Has(nmapArtifact) {
			add(steps.KindNmap, "live hosts found but no port scan recorded")
		}
		if !ws.Has(steps.WhatwebFile) {
			add(steps.KindWebCMS, "no technology fingerprint recorded")
		}
		if !ws.Has(steps.FfufFile) {
			add(steps.KindWebDirs, fmt.Sprintf("no directory listing recorded for https://%s", target))
		}
	}
	return out, nil
}

// NewAdvisor returns the advisor selected by cfg.
func NewAdvisor(cfg *config.Config) Advisor {
	if cfg == nil || !cfg.AI.Enabled {
		return NopAdvisor{}
	}
	return ArtifactAdvisor{}
}
