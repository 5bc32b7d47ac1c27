package transform

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/fhirbridge/fhirbridge/internal/domain/convert"
	"github.com/fhirbridge/fhirbridge/internal/domain/lock"
	"github.com/fhirbridge/fhirbridge/internal/domain/rule"
	"github.com/fhirbridge/fhirbridge/internal/domain/script"
	"github.com/fhirbridge/fhirbridge/internal/platform/dhis"
	"github.com/fhirbridge/fhirbridge/internal/platform/fhir"
)

// TrackerClient is the subset of the tracker REST client the orchestrator
// needs to persist outcomes. Each call returns the tracker-assigned
// identifier of the created item.
type TrackerClient interface {
	CreateTrackedEntity(ctx context.Context, te *dhis.TrackedEntity) (string, error)
	CreateEnrollment(ctx context.Context, en *dhis.Enrollment) (string, error)
	CreateEvent(ctx context.Context, ev *dhis.Event) (string, error)
}

// Orchestrator drives one FHIR resource through rule selection, guard
// evaluation, transformation and persistence.
type Orchestrator struct {
	rules    rule.Repository
	scripts  script.Repository
	executor *script.Executor
	registry *Registry
	locks    *lock.Manager
	client   TrackerClient
	version  string
	log      zerolog.Logger
}

func NewOrchestrator(rules rule.Repository, scripts script.Repository, executor *script.Executor, registry *Registry, locks *lock.Manager, client TrackerClient, version string, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		rules:    rules,
		scripts:  scripts,
		executor: executor,
		registry: registry,
		locks:    locks,
		client:   client,
		version:  version,
		log:      log,
	}
}

// Transform selects the candidate rules for in and tries them in order. The
// first rule whose guard passes and whose transformer produces a payload
// wins; the payload is persisted under the locks the transformer took and the
// outcome is returned. A script or conversion failure declines the candidate
// (logged, locks rolled back, next candidate tried). No matching rule is not
// an error: the result is (nil, nil).
func (o *Orchestrator) Transform(ctx context.Context, in *fhir.Resource) (*Outcome, error) {
	codes := fhir.ExtractCodes(in)
	candidates, err := o.rules.FindAllByInputData(ctx, in.ResourceType, codes)
	if err != nil {
		return nil, fmt.Errorf("select rules for %s: %w", in.ResourceType, err)
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	ctx, lc, err := o.locks.JoinOrBegin(ctx)
	if err != nil {
		return nil, err
	}
	defer lc.Close()

	for _, candidate := range candidates {
		outcome, err := o.tryRule(ctx, lc, candidate, in)
		if err != nil {
			if isCandidateError(err) {
				o.log.Info().
					Str("rule", candidate.Name).
					Str("resource", in.ResourceType+"/"+in.ID).
					Err(err).
					Msg("rule declined input")
				if uerr := lc.UnlockAll(); uerr != nil {
					return nil, uerr
				}
				continue
			}
			return nil, err
		}
		if outcome == nil {
			if uerr := lc.UnlockAll(); uerr != nil {
				return nil, uerr
			}
			continue
		}

		if err := o.persist(ctx, outcome); err != nil {
			return nil, err
		}
		o.log.Info().
			Str("rule", candidate.Name).
			Str("rule_id", candidate.ID.String()).
			Str("resource", in.ResourceType+"/"+in.ID).
			Str("tracker_type", string(outcome.ResourceType)).
			Msg("resource transformed")
		return outcome, nil
	}

	return nil, nil
}

// tryRule evaluates one candidate: guard script, then transformer.
func (o *Orchestrator) tryRule(ctx context.Context, lc lock.Context, candidate *rule.Rule, in *fhir.Resource) (*Outcome, error) {
	if candidate.ApplicableScript != nil {
		es, err := o.scripts.GetExecutable(ctx, *candidate.ApplicableScript)
		if err != nil {
			return nil, &FatalError{Msg: "resolve guard script for rule " + candidate.Name, Err: err}
		}
		ok, err := o.executor.ExecuteBool(nil, es, o.version, map[string]interface{}{
			"input": in.Data,
		})
		if err != nil {
			return nil, err
		}
		if !ok {
			// Guard declined; not an error.
			return nil, nil
		}
	}

	transformer, err := o.registry.Get(o.version, candidate.TrackerResourceType)
	if err != nil {
		return nil, err
	}
	return transformer.Transform(ctx, &Input{
		Resource: in,
		RuleID:   candidate.ID,
		Version:  o.version,
	})
}

func (o *Orchestrator) persist(ctx context.Context, oc *Outcome) error {
	var (
		ref string
		err error
	)
	switch oc.ResourceType {
	case dhis.ResourceTrackedEntity:
		ref, err = o.client.CreateTrackedEntity(ctx, oc.TrackedEntity)
	case dhis.ResourceEnrollment:
		ref, err = o.client.CreateEnrollment(ctx, oc.Enrollment)
	case dhis.ResourceEvent:
		ref, err = o.client.CreateEvent(ctx, oc.Event)
	default:
		return &FatalError{Msg: "unsupported outcome resource type " + string(oc.ResourceType)}
	}
	if err != nil {
		return fmt.Errorf("persist %s: %w", oc.ResourceType, err)
	}
	o.applyReference(oc, ref)
	return nil
}

// applyReference copies the tracker-assigned identifier onto the payload.
func (o *Orchestrator) applyReference(oc *Outcome, ref string) {
	if ref == "" {
		return
	}
	switch oc.ResourceType {
	case dhis.ResourceTrackedEntity:
		oc.TrackedEntity.ID = ref
	case dhis.ResourceEnrollment:
		oc.Enrollment.ID = ref
	case dhis.ResourceEvent:
		oc.Event.ID = ref
	}
}

// isCandidateError reports whether err only disqualifies the current rule.
// Script and conversion failures decline the candidate; everything else
// aborts the orchestration.
func isCandidateError(err error) bool {
	var (
		execErr    *script.ExecError
		compileErr *script.CompileError
		prepErr    *script.PrepareError
		convErr    *convert.ConversionError
	)
	return errors.As(err, &execErr) ||
		errors.As(err, &compileErr) ||
		errors.As(err, &prepErr) ||
		errors.As(err, &convErr)
}
