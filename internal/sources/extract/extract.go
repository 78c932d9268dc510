// Contestwatch - Contest and Hackathon Aggregator
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/contestwatch

// Package extract holds the ordered-fallback field lookups shared by the
// adapters. Every helper takes several candidate locations and returns the
// first one that yields a usable value.
package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Lookup walks a dotted path ("a.b.c") through decoded JSON objects.
func Lookup(m map[string]any, path string) (any, bool) {
	var cur any = m
	for _, key := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = obj[key]; !ok || cur == nil {
			return nil, false
		}
	}
	return cur, true
}

// FirstString returns the first non-blank string found at any path. Numbers
// are formatted without a fractional part when they are whole.
func FirstString(m map[string]any, paths ...string) string {
	for _, p := range paths {
		v, ok := Lookup(m, p)
		if !ok {
			continue
		}
		switch t := v.(type) {
		case string:
			if s := strings.TrimSpace(t); s != "" {
				return s
			}
		case float64:
			return strconv.FormatFloat(t, 'f', -1, 64)
		case int64:
			return strconv.FormatInt(t, 10)
		case int:
			return strconv.Itoa(t)
		}
	}
	return ""
}

// FirstInt64 returns the first numeric value, accepting numeric strings.
func FirstInt64(m map[string]any, paths ...string) (int64, bool) {
	for _, p := range paths {
		v, ok := Lookup(m, p)
		if !ok {
			continue
		}
		switch t := v.(type) {
		case float64:
			return int64(t), true
		case int64:
			return t, true
		case int:
			return int64(t), true
		case string:
			if n, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64); err == nil {
				return n, true
			}
		}
	}
	return 0, false
}

// FirstBool returns the first boolean, accepting "true"/"false" strings.
func FirstBool(m map[string]any, paths ...string) (value, ok bool) {
	for _, p := range paths {
		v, found := Lookup(m, p)
		if !found {
			continue
		}
		switch t := v.(type) {
		case bool:
			return t, true
		case string:
			if b, err := strconv.ParseBool(strings.TrimSpace(t)); err == nil {
				return b, true
			}
		}
	}
	return false, false
}

// FirstList returns the first array of objects found at any path.
func FirstList(m map[string]any, paths ...string) []map[string]any {
	for _, p := range paths {
		v, ok := Lookup(m, p)
		if !ok {
			continue
		}
		arr, ok := v.([]any)
		if !ok {
			continue
		}
		out := make([]map[string]any, 0, len(arr))
		for _, item := range arr {
			if obj, ok := item.(map[string]any); ok {
				out = append(out, obj)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

// FirstText returns the trimmed text of the first selector that matches a
// non-blank element under sel.
func FirstText(sel *goquery.Selection, selectors ...string) string {
	for _, s := range selectors {
		if t := strings.Join(strings.Fields(sel.Find(s).First().Text()), " "); t != "" {
			return t
		}
	}
	return ""
}

// FirstAttr returns attr from the first selector whose match carries it.
// An empty selector means sel itself.
func FirstAttr(sel *goquery.Selection, attr string, selectors ...string) string {
	for _, s := range selectors {
		target := sel
		if s != "" {
			target = sel.Find(s).First()
		}
		if v, ok := target.Attr(attr); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// FirstMatch returns the first capture group (or whole match) of the first
// pattern that matches text.
func FirstMatch(text string, patterns ...*regexp.Regexp) string {
	for _, re := range patterns {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if len(m) > 1 && strings.TrimSpace(m[1]) != "" {
			return strings.TrimSpace(m[1])
		}
		return strings.TrimSpace(m[0])
	}
	return ""
}

// LastPathSegment returns the final non-empty segment of a URL path,
// e.g. "abc440" for "/contests/abc440/".
func LastPathSegment(p string) string {
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	p = strings.TrimRight(p, "/")
	if i := strings.LastIndex(p, "/"); i >= 0 {
		return p[i+1:]
	}
	return p
}
