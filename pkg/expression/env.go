package expression

import (
	"strings"
	"sync"

	"github.com/autobrr/contentdir/pkg/content"
	"github.com/autobrr/contentdir/pkg/regex"
	"github.com/autobrr/contentdir/pkg/sliceutils"
)

// Env is what a filter expression sees of one content file.
type Env struct {
	Hash         string
	Index        int
	Download     string
	Name         string
	Length       int64
	AddedSeconds int64
	Categories   []string
	Tags         []string
	PercentDone  int64
	ETA          int64
	Complete     bool
}

func newEnv(s content.Snapshot) *Env {
	env := &Env{
		Hash:        s.Hash.String(),
		Index:       s.Index,
		Download:    s.Download,
		Name:        s.Name,
		Length:      s.Length,
		Categories:  s.Categories,
		Tags:        s.Tags,
		PercentDone: s.PercentDone,
		ETA:         s.ETA,
		Complete:    s.PercentDone >= content.PercentDoneFull,
	}

	if !s.CreationDate.IsZero() {
		env.AddedSeconds = s.CreationDate.Unix()
	}

	return env
}

func (e *Env) HasTag(tag string) bool {
	return sliceutils.StringSliceContains(e.Tags, tag, true)
}

func (e *Env) HasCategory(category string) bool {
	return sliceutils.StringSliceContains(e.Categories, category, true)
}

func (e *Env) HasAnyTag(tags ...string) bool {
	for _, tag := range tags {
		if e.HasTag(tag) {
			return true
		}
	}
	return false
}

// RegexMatch reports whether the file or download name matches pattern.
// Invalid patterns never match.
func (e *Env) RegexMatch(pattern string) bool {
	p, err := cachedPattern(pattern)
	if err != nil {
		return false
	}

	for _, s := range []string{e.Name, e.Download} {
		if s == "" {
			continue
		}
		if ok, err := regex.Check(s, p); err == nil && ok {
			return true
		}
	}

	return false
}

func (e *Env) NameContains(sub string) bool {
	return strings.Contains(strings.ToLower(e.Name), strings.ToLower(sub))
}

var patterns sync.Map

func cachedPattern(pattern string) (*regex.Pattern, error) {
	if p, ok := patterns.Load(pattern); ok {
		return p.(*regex.Pattern), nil
	}

	p, err := regex.Compile(pattern)
	if err != nil {
		return nil, err
	}

	actual, _ := patterns.LoadOrStore(pattern, p)
	return actual.(*regex.Pattern), nil
}
