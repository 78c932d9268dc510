// Contestwatch - Contest and Hackathon Aggregator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contestwatch

// Package registry builds the enabled adapters from configuration.
package registry

import (
	"fmt"

	"github.com/tomtom215/contestwatch/internal/config"
	"github.com/tomtom215/contestwatch/internal/models"
	"github.com/tomtom215/contestwatch/internal/normalize"
	"github.com/tomtom215/contestwatch/internal/sources"
	"github.com/tomtom215/contestwatch/internal/sources/atcoder"
	"github.com/tomtom215/contestwatch/internal/sources/codechef"
	"github.com/tomtom215/contestwatch/internal/sources/codeforces"
	"github.com/tomtom215/contestwatch/internal/sources/devfolio"
	"github.com/tomtom215/contestwatch/internal/sources/devpost"
	"github.com/tomtom215/contestwatch/internal/sources/leetcode"
	"github.com/tomtom215/contestwatch/internal/sources/mlh"
)

// Set is the adapters enabled for one process.
type Set struct {
	Contests   []sources.ContestSource
	Hackathons []sources.HackathonSource
}

// Enabled returns every enabled platform, contests first.
func (s *Set) Enabled() []models.Platform {
	out := make([]models.Platform, 0, len(s.Contests)+len(s.Hackathons))
	for _, c := range s.Contests {
		out = append(out, c.Platform())
	}
	for _, h := range s.Hackathons {
		out = append(out, h.Platform())
	}
	return out
}

// Build constructs adapters for the platforms listed in cfg.Refresh. A
// platform listed under the wrong category is an error.
func Build(cfg *config.Config, client sources.Fetcher, norm *normalize.Normalizer) (*Set, error) {
	set := &Set{}
	src := cfg.Sources

	for _, name := range cfg.Refresh.ContestPlatforms {
		p, err := models.ParsePlatform(name)
		if err != nil {
			return nil, err
		}
		switch p {
		case models.PlatformCodeforces:
			set.Contests = append(set.Contests, codeforces.New(client, norm, src.CodeforcesURL))
		case models.PlatformCodeChef:
			set.Contests = append(set.Contests, codechef.New(client, norm, src.CodeChefURL))
		case models.PlatformLeetCode:
			set.Contests = append(set.Contests, leetcode.New(client, norm, src.LeetCodeURL))
		case models.PlatformAtCoder:
			set.Contests = append(set.Contests, atcoder.New(client, norm, src.AtCoderURL))
		default:
			return nil, fmt.Errorf("platform %s is not a contest source", p)
		}
	}

	for _, name := range cfg.Refresh.HackathonPlatforms {
		p, err := models.ParsePlatform(name)
		if err != nil {
			return nil, err
		}
		switch p {
		case models.PlatformDevfolio:
			set.Hackathons = append(set.Hackathons, devfolio.New(client, norm, src.DevfolioURL))
		case models.PlatformMLH:
			set.Hackathons = append(set.Hackathons, mlh.New(client, norm, src.MLHURL))
		case models.PlatformDevpost:
			set.Hackathons = append(set.Hackathons, devpost.New(client, norm, src.DevpostURL))
		default:
			return nil, fmt.Errorf("platform %s is not a hackathon source", p)
		}
	}
	return set, nil
}
