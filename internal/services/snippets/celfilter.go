package snippetsvc

import (
	"strings"
	"time"

	"github.com/google/cel-go/cel"

	"github.com/nicholasjhenry/review-room-sub000/internal/buffer"
)

// celFilter wraps a compiled CEL program used to narrow dead-letter
// listings. When disabled, Eval always returns true.
type celFilter struct {
	prog    cel.Program
	enabled bool
}

func newCELFilter(expr string) (celFilter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return celFilter{enabled: false}, nil
	}
	env, err := cel.NewEnv(
		cel.Variable("scope_key", cel.StringType),
		cel.Variable("token", cel.StringType),
		cel.Variable("attempts", cel.IntType),
		cel.Variable("error", cel.StringType),
		cel.Variable("failed_at_ms", cel.IntType),
		// Current time in ms for windowed filters
		cel.Variable("now_ms", cel.IntType),
	)
	if err != nil {
		return celFilter{}, err
	}
	ast, iss := env.Parse(expr)
	if iss != nil && iss.Err() != nil {
		return celFilter{}, iss.Err()
	}
	checked, iss2 := env.Check(ast)
	if iss2 != nil && iss2.Err() != nil {
		return celFilter{}, iss2.Err()
	}
	prog, err := env.Program(checked)
	if err != nil {
		return celFilter{}, err
	}
	return celFilter{prog: prog, enabled: true}, nil
}

// Eval evaluates the compiled expression against a dead letter. When
// disabled, returns true.
func (f celFilter) Eval(dl buffer.DeadLetter) bool {
	if !f.enabled {
		return true
	}
	out, _, err := f.prog.Eval(map[string]any{
		"scope_key":    dl.ScopeKey,
		"token":        dl.Token.String(),
		"attempts":     int64(dl.Attempts),
		"error":        dl.LastError,
		"failed_at_ms": dl.FailedAt.UnixMilli(),
		"now_ms":       time.Now().UnixMilli(),
	})
	if err != nil {
		return false
	}
	b, ok := out.Value().(bool)
	return ok && b
}
