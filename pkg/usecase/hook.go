package usecase

import (
	"context"
	"strings"

	"github.com/secmon-lab/jira2zammad/pkg/domain/model"
	"github.com/secmon-lab/jira2zammad/pkg/domain/types"
)

// ValueHook rewrites the value of one Jira field before the generic mapping.
// When done is true the result is used as the final Zammad value.
type ValueHook func(ctx context.Context, value any) (result any, done bool, err error)

// defaultTransforms apply unless the configuration overrides the field.
var defaultTransforms = map[string]types.ValueTransform{
	"status":    types.ValueTransformName,
	"issuetype": types.ValueTransformType,
}

// builtinHook returns the hook implementing a named transform.
func builtinHook(t types.ValueTransform) ValueHook {
	switch t {
	case types.ValueTransformName:
		return func(_ context.Context, v any) (any, bool, error) {
			return lowerName(v), false, nil
		}
	case types.ValueTransformType:
		return func(_ context.Context, v any) (any, bool, error) {
			return lowerName(v), true, nil
		}
	case types.ValueTransformText:
		return func(_ context.Context, v any) (any, bool, error) {
			return model.Readable(v), false, nil
		}
	case types.ValueTransformJoin:
		return func(_ context.Context, v any) (any, bool, error) {
			switch x := v.(type) {
			case []any, []string:
				return model.Readable(x), false, nil
			}
			return v, false, nil
		}
	}
	return nil
}

// lowerName reduces a Jira object to its lowercase name. Values without a
// name are rendered as text.
func lowerName(v any) any {
	if name, ok := model.ObjectName(v); ok {
		return strings.ToLower(name)
	}
	return strings.ToLower(model.Readable(v))
}
