// Package expression evaluates filter conditions and template strings
// used by pipeline steps. Compiled programs are cached so repeated
// evaluation of the same condition (per record, per page) stays cheap.
package expression

import (
	"fmt"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

const (
	cacheExpiration   = 5 * time.Minute
	cacheCleanup      = 10 * time.Minute
	maxCachedItems    = 1000
	evaluationsPerSec = 500
	evaluationBurst   = 50
)

type evaluator struct {
	programs *gocache.Cache
	limiter  *rate.Limiter
}

var defaultEvaluator = &evaluator{
	programs: gocache.New(cacheExpiration, cacheCleanup),
	limiter:  rate.NewLimiter(rate.Limit(evaluationsPerSec), evaluationBurst),
}

// Evaluate compiles and runs an expression against the given environment.
// Compilation results are cached by expression text.
func Evaluate(expression string, env map[string]interface{}) (interface{}, error) {
	return defaultEvaluator.evaluate(expression, env)
}

func (e *evaluator) evaluate(expression string, env map[string]interface{}) (interface{}, error) {
	if !e.limiter.Allow() {
		return nil, fmt.Errorf("expression evaluation rate limit exceeded")
	}

	if cached, found := e.programs.Get(expression); found {
		if program, ok := cached.(*vm.Program); ok {
			return runProgram(program, env, expression)
		}
	}

	program, err := expr.Compile(expression, Options(env)...)
	if err != nil {
		return nil, fmt.Errorf("failed to compile expression %q: %w", expression, err)
	}

	if e.programs.ItemCount() < maxCachedItems {
		e.programs.Set(expression, program, gocache.DefaultExpiration)
	}

	return runProgram(program, env, expression)
}

func runProgram(program *vm.Program, env map[string]interface{}, expression string) (interface{}, error) {
	result, err := expr.Run(program, env)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate expression %q: %w", expression, err)
	}
	return result, nil
}

// EvaluateBool evaluates an expression and coerces the result to a
// boolean. Nil is false, booleans pass through, anything else is truthy.
func EvaluateBool(expression string, env map[string]interface{}) (bool, error) {
	result, err := Evaluate(expression, env)
	if err != nil {
		return false, err
	}

	switch v := result.(type) {
	case bool:
		return v, nil
	case nil:
		return false, nil
	default:
		return true, nil
	}
}

// ClearCache drops all cached compiled programs
func ClearCache() {
	defaultEvaluator.programs.Flush()
}
