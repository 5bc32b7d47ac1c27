package transform

import (
	"context"

	"github.com/fhirbridge/fhirbridge/internal/domain/convert"
	"github.com/fhirbridge/fhirbridge/internal/domain/lock"
	"github.com/fhirbridge/fhirbridge/internal/domain/rule"
	"github.com/fhirbridge/fhirbridge/internal/domain/script"
	"github.com/fhirbridge/fhirbridge/internal/platform/dhis"
)

// scriptTransformer runs the rule's transform script against an output
// wrapper for one tracker resource type. The script mutates "output" and
// returns true to commit it; any other result declines the input.
type scriptTransformer struct {
	resourceType dhis.ResourceType
	rules        rule.Repository
	scripts      script.Repository
	executor     *script.Executor
	conv         *convert.Registry
}

func newScriptTransformer(resourceType dhis.ResourceType, rules rule.Repository, scripts script.Repository, executor *script.Executor, conv *convert.Registry) *scriptTransformer {
	return &scriptTransformer{
		resourceType: resourceType,
		rules:        rules,
		scripts:      scripts,
		executor:     executor,
		conv:         conv,
	}
}

// NewTrackedEntityTransformer builds the transformer producing tracked
// entity payloads.
func NewTrackedEntityTransformer(rules rule.Repository, scripts script.Repository, executor *script.Executor, conv *convert.Registry) Transformer {
	return newScriptTransformer(dhis.ResourceTrackedEntity, rules, scripts, executor, conv)
}

// NewEnrollmentTransformer builds the transformer producing enrollment
// payloads.
func NewEnrollmentTransformer(rules rule.Repository, scripts script.Repository, executor *script.Executor, conv *convert.Registry) Transformer {
	return newScriptTransformer(dhis.ResourceEnrollment, rules, scripts, executor, conv)
}

// NewEventTransformer builds the transformer producing event payloads.
func NewEventTransformer(rules rule.Repository, scripts script.Repository, executor *script.Executor, conv *convert.Registry) Transformer {
	return newScriptTransformer(dhis.ResourceEvent, rules, scripts, executor, conv)
}

func (t *scriptTransformer) ResourceType() dhis.ResourceType { return t.resourceType }

func (t *scriptTransformer) Transform(ctx context.Context, in *Input) (*Outcome, error) {
	ru, err := t.rules.GetByID(ctx, in.RuleID)
	if err != nil {
		return nil, &FatalError{Msg: "resolve rule " + in.RuleID.String(), Err: err}
	}
	es, err := t.scripts.GetExecutable(ctx, ru.TransformScript)
	if err != nil {
		return nil, &FatalError{Msg: "resolve transform script for rule " + ru.Name, Err: err}
	}

	// Writes to the produced entity are serialized on its identity.
	if lc := lock.FromContext(ctx); lc != nil {
		key := string(t.resourceType) + ":" + in.Resource.ResourceType + "/" + in.Resource.ID
		if err := lc.Lock(ctx, key); err != nil {
			return nil, err
		}
	}

	output, extract := t.newOutput()
	vars := map[string]interface{}{
		"input":   in.Resource.Data,
		"output":  output,
		"context": newScriptContext(in),
	}

	out, err := t.executor.ExecuteBool(nil, es, in.Version, vars)
	if err != nil {
		return nil, err
	}
	if !out {
		return nil, nil
	}

	oc := extract()
	oc.RuleID = ru.ID
	return oc, nil
}

// newOutput builds the per-type output wrapper plus the closure that turns it
// into an outcome after the script commits.
func (t *scriptTransformer) newOutput() (interface{}, func() *Outcome) {
	switch t.resourceType {
	case dhis.ResourceEnrollment:
		o := &EnrollmentOutput{conv: t.conv}
		return o, func() *Outcome {
			return &Outcome{ResourceType: t.resourceType, Enrollment: &o.payload}
		}
	case dhis.ResourceEvent:
		o := &EventOutput{conv: t.conv}
		return o, func() *Outcome {
			return &Outcome{ResourceType: t.resourceType, Event: &o.payload}
		}
	default:
		o := &TrackedEntityOutput{conv: t.conv}
		return o, func() *Outcome {
			return &Outcome{ResourceType: t.resourceType, TrackedEntity: &o.payload}
		}
	}
}
