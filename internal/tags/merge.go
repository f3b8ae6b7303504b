package tags

import (
	"context"

	"github.com/pictor-board/pictor/internal/access"
	"github.com/pictor-board/pictor/internal/api"
	"github.com/pictor-board/pictor/internal/auth"
)

// JobMerge is the job-type identifier for tag merging.
const JobMerge = "merge-tags"

// MergeJob collapses a source tag into a target tag: post associations move
// over without duplicates, the source's aliases and its own name become
// aliases of the target, and the source row disappears. The whole merge runs
// inside the transaction owned by the job runner, so it either applies fully
// or not at all.
type MergeJob struct {
	repo Repository
}

// NewMergeJob constructs the job.
func NewMergeJob(repo Repository) *MergeJob {
	return &MergeJob{repo: repo}
}

func (j *MergeJob) Name() string { return JobMerge }

func (j *MergeJob) RequiredArguments() api.Requirement {
	return api.AllArgs(api.ArgSourceTagName, api.ArgTargetTagName)
}

func (j *MergeJob) MainPrivilege() access.Privilege {
	return access.PrivMergeTags
}

func (j *MergeJob) SubPrivilege(api.ArgumentSet, *auth.Context) access.Privilege {
	return ""
}

func (j *MergeJob) AuthenticationRequired() bool { return false }

func (j *MergeJob) ConfirmedEmailRequired() bool { return false }

func (j *MergeJob) Execute(ctx context.Context, args api.ArgumentSet, actor *auth.Context) (any, error) {
	// stale unused tags are swept first so they never block a merge or
	// linger as merge targets
	if _, err := j.repo.RemoveUnused(ctx); err != nil {
		return nil, err
	}

	source, err := j.repo.FindByName(ctx, args.String(api.ArgSourceTagName))
	if err != nil {
		return nil, err
	}
	target, err := j.repo.FindByName(ctx, args.String(api.ArgTargetTagName))
	if err != nil {
		return nil, err
	}

	// merging a tag into itself is a successful no-op
	if source.ID == target.ID {
		return target, nil
	}

	if err := j.repo.ReassignPosts(ctx, source.ID, target.ID); err != nil {
		return nil, err
	}
	aliases := append(append([]string(nil), source.Aliases...), source.Name)
	if err := j.repo.AddAliases(ctx, target.ID, aliases); err != nil {
		return nil, err
	}
	if err := j.repo.Delete(ctx, source.ID); err != nil {
		return nil, err
	}

	return j.repo.FindByName(ctx, target.Name)
}

func (j *MergeJob) AuditEntry(args api.ArgumentSet, actor *auth.Context, result any) (string, map[string]string) {
	return "{user} merged {source} with {target}", map[string]string{
		"user":   actor.ActorName(),
		"source": args.String(api.ArgSourceTagName),
		"target": args.String(api.ArgTargetTagName),
	}
}

var _ api.Job = (*MergeJob)(nil)
