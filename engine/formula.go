package engine

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/amirphl/Tarazu/utils"
	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
)

// FormulaEvaluator compiles and runs the constrained pricing expressions
// stored on formula actions. The grammar is CEL with macros cleared, so
// expressions have arithmetic, comparisons and the ternary operator but no
// loops, comprehensions or user definitions. Exposed inputs are the context
// namespaces (item, specs, benchmarks, pricing) plus the condition grade;
// the only extra function is clamp(value, min, max). Compiled programs are
// cached per formula text.
type FormulaEvaluator struct {
	env       *cel.Env
	costLimit uint64
	logger    *slog.Logger

	mu       sync.RWMutex
	programs map[string]cel.Program
}

// NewFormulaEvaluator creates the shared formula environment. costLimit
// bounds the evaluation cost of one expression; zero picks the default.
func NewFormulaEvaluator(costLimit uint64, logger *slog.Logger) (*FormulaEvaluator, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if costLimit == 0 {
		costLimit = utils.DefaultFormulaCostLimit
	}

	env, err := cel.NewEnv(
		cel.ClearMacros(),
		cel.Variable("item", cel.DynType),
		cel.Variable("specs", cel.DynType),
		cel.Variable("benchmarks", cel.DynType),
		cel.Variable("pricing", cel.DynType),
		cel.Variable("condition", cel.StringType),
		cel.Function("clamp",
			cel.Overload("clamp_double_double_double",
				[]*cel.Type{cel.DoubleType, cel.DoubleType, cel.DoubleType},
				cel.DoubleType,
				cel.FunctionBinding(clampBinding),
			),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create formula environment: %w", err)
	}

	return &FormulaEvaluator{
		env:       env,
		costLimit: costLimit,
		logger:    logger,
		programs:  make(map[string]cel.Program),
	}, nil
}

// Validate checks that the text compiles in the restricted grammar. It is
// how hydration and authoring tell a real formula from descriptive prose.
func (e *FormulaEvaluator) Validate(text string) error {
	_, err := e.compile(text)
	return err
}

// Evaluate runs the formula against the context and returns its numeric
// result. Compile failures, runtime errors, cost-limit hits and non-numeric
// results all come back as errors; callers treat them as a $0 contribution,
// not as a system failure.
func (e *FormulaEvaluator) Evaluate(text string, ctx Context) (float64, error) {
	prg, err := e.compile(text)
	if err != nil {
		return 0, err
	}

	out, _, err := prg.Eval(e.activation(ctx))
	if err != nil {
		return 0, fmt.Errorf("formula evaluation: %w", err)
	}

	switch v := out.Value().(type) {
	case float64:
		return v, nil
	case int64:
		return float64(v), nil
	case uint64:
		return float64(v), nil
	default:
		return 0, fmt.Errorf("formula returned non-numeric %T", out.Value())
	}
}

func (e *FormulaEvaluator) compile(text string) (cel.Program, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("empty formula")
	}

	e.mu.RLock()
	prg, exists := e.programs[text]
	e.mu.RUnlock()
	if exists {
		return prg, nil
	}

	ast, issues := e.env.Compile(text)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile error: %w", issues.Err())
	}

	prg, err := e.env.Program(ast,
		cel.EvalOptions(cel.OptTrackState),
		cel.CostLimit(e.costLimit),
	)
	if err != nil {
		return nil, fmt.Errorf("program creation error: %w", err)
	}

	e.mu.Lock()
	e.programs[text] = prg
	e.mu.Unlock()

	return prg, nil
}

// activation maps the context namespaces onto the declared variables.
// Missing namespaces become empty documents so references to them resolve
// to eval errors on the exact missing key instead of activation failures.
func (e *FormulaEvaluator) activation(ctx Context) map[string]any {
	return map[string]any{
		"item":       ctx.Namespace("item"),
		"specs":      ctx.Namespace("specs"),
		"benchmarks": ctx.Namespace("benchmarks"),
		"pricing":    ctx.Namespace("pricing"),
		"condition":  ctx.ConditionGrade(),
	}
}

func clampBinding(args ...ref.Val) ref.Val {
	if len(args) != 3 {
		return types.NewErr("clamp expects 3 arguments, got %d", len(args))
	}
	nums := make([]float64, 3)
	for i, arg := range args {
		switch v := arg.(type) {
		case types.Double:
			nums[i] = float64(v)
		case types.Int:
			nums[i] = float64(v)
		case types.Uint:
			nums[i] = float64(v)
		default:
			return types.NewErr("clamp: numeric argument expected, got %s", arg.Type().TypeName())
		}
	}

	value, lo, hi := nums[0], nums[1], nums[2]
	if lo > hi {
		lo, hi = hi, lo
	}
	if value < lo {
		value = lo
	}
	if value > hi {
		value = hi
	}
	return types.Double(value)
}
