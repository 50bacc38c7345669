package workflow

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/jingkaihe/skillet/pkg/executor"
	"github.com/jingkaihe/skillet/pkg/skills"
)

type call struct {
	Skill  string
	Input  string
	Config map[string]any
}

type fakeExecutor struct {
	mu      sync.Mutex
	calls   []call
	outputs map[string]any
	fail    map[string]error
	// respond, when set, computes the output from the input.
	respond func(skill, input string) any
}

func (f *fakeExecutor) Execute(_ context.Context, name, input string, opts executor.Options) (*executor.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{Skill: name, Input: input, Config: opts.Config})
	if err := f.fail[name]; err != nil {
		return nil, err
	}
	var out any = name + " output"
	if f.respond != nil {
		out = f.respond(name, input)
	} else if v, ok := f.outputs[name]; ok {
		out = v
	}
	return &executor.Result{Output: out, Metadata: executor.Metadata{Skill: name, Kind: "prompt"}}, nil
}

func (f *fakeExecutor) Calls() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

type skillSet map[string]bool

func (s skillSet) Get(_ context.Context, name string) (*skills.Descriptor, error) {
	if s[name] {
		return &skills.Descriptor{Name: name}, nil
	}
	var names []string
	for n := range s {
		names = append(names, n)
	}
	return nil, &skills.NotFoundError{Name: name, Suggestions: skills.Suggest(name, names)}
}

func anySkill() SkillLookup { return acceptAll{} }

type acceptAll struct{}

func (acceptAll) Get(_ context.Context, name string) (*skills.Descriptor, error) {
	return &skills.Descriptor{Name: name}, nil
}

var errBoom = errors.New("boom")

func writeWorkflow(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func mustParse(t *testing.T, content string) *Definition {
	t.Helper()
	def, err := Parse([]byte(content))
	require.NoError(t, err)
	return def
}

const chainWorkflow = `name: bees
description: research then write
variables:
  topic: bees
steps:
  - name: A
    skill: researcher
    input: ${topic}
    output: notes
  - name: B
    skill: author
    input: ${notes}
    output: draft
`
