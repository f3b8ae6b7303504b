package tags

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pictor-board/pictor/internal/access"
	"github.com/pictor-board/pictor/internal/api"
	"github.com/pictor-board/pictor/internal/audit"
	"github.com/pictor-board/pictor/internal/auth"
	"github.com/pictor-board/pictor/internal/shared"
)

type memoryTagRepo struct {
	tags     map[int64]*Tag
	postTags map[int64]map[int64]bool // post ID -> set of tag IDs
	nextID   int64
}

func newMemoryTagRepo() *memoryTagRepo {
	return &memoryTagRepo{
		tags:     make(map[int64]*Tag),
		postTags: make(map[int64]map[int64]bool),
	}
}

func (r *memoryTagRepo) addTag(name string, aliases ...string) *Tag {
	r.nextID++
	tag := &Tag{ID: r.nextID, Name: name, Aliases: aliases}
	r.tags[tag.ID] = tag
	return tag
}

func (r *memoryTagRepo) tagPost(postID int64, tagIDs ...int64) {
	if r.postTags[postID] == nil {
		r.postTags[postID] = make(map[int64]bool)
	}
	for _, id := range tagIDs {
		r.postTags[postID][id] = true
	}
}

func (r *memoryTagRepo) postsWith(tagID int64) []int64 {
	var posts []int64
	for postID, set := range r.postTags {
		if set[tagID] {
			posts = append(posts, postID)
		}
	}
	sort.Slice(posts, func(i, j int) bool { return posts[i] < posts[j] })
	return posts
}

func (r *memoryTagRepo) FindByName(ctx context.Context, name string) (*Tag, error) {
	for _, tag := range r.tags {
		if strings.EqualFold(tag.Name, name) {
			copied := *tag
			copied.Aliases = append([]string(nil), tag.Aliases...)
			return &copied, nil
		}
	}
	return nil, shared.NewError(shared.KindNotFound, "Tag %q not found", name)
}

func (r *memoryTagRepo) RemoveUnused(ctx context.Context) (int64, error) {
	var removed int64
	for id := range r.tags {
		if len(r.postsWith(id)) == 0 {
			delete(r.tags, id)
			removed++
		}
	}
	return removed, nil
}

func (r *memoryTagRepo) ReassignPosts(ctx context.Context, sourceID, targetID int64) error {
	for _, set := range r.postTags {
		if set[sourceID] {
			delete(set, sourceID)
			set[targetID] = true
		}
	}
	return nil
}

func (r *memoryTagRepo) AddAliases(ctx context.Context, tagID int64, aliases []string) error {
	tag, ok := r.tags[tagID]
	if !ok {
		return shared.NewError(shared.KindNotFound, "Tag %d not found", tagID)
	}
	for _, alias := range aliases {
		if !tag.HasAlias(alias) {
			tag.Aliases = append(tag.Aliases, alias)
		}
	}
	return nil
}

func (r *memoryTagRepo) Delete(ctx context.Context, tagID int64) error {
	delete(r.tags, tagID)
	return nil
}

type passTransactor struct{}

func (passTransactor) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type mergeFixture struct {
	repo   *memoryTagRepo
	runner *api.Runner
	job    *MergeJob
	logBuf *bytes.Buffer
}

func newMergeFixture(t *testing.T) *mergeFixture {
	t.Helper()
	resolver, err := access.NewResolver(map[string]string{"tags:merge": "moderator"})
	require.NoError(t, err)
	repo := newMemoryTagRepo()
	logBuf := &bytes.Buffer{}
	runner := api.NewRunner(
		slog.New(slog.NewTextHandler(io.Discard, nil)),
		resolver,
		passTransactor{},
		audit.NewLogger(audit.NewLineSink(logBuf)),
	)
	return &mergeFixture{repo: repo, runner: runner, job: NewMergeJob(repo), logBuf: logBuf}
}

func moderator() *auth.Context {
	return &auth.Context{UserID: 7, UserName: "mod", Rank: access.Moderator, Authenticated: true, EmailConfirmed: true}
}

func (f *mergeFixture) merge(t *testing.T, source, target string) (*Tag, error) {
	t.Helper()
	result, err := f.runner.Run(context.Background(), f.job, api.NewArgumentSet(map[string]string{
		api.ArgSourceTagName: source,
		api.ArgTargetTagName: target,
	}), moderator())
	if err != nil {
		return nil, err
	}
	tag, ok := result.(*Tag)
	require.True(t, ok)
	return tag, nil
}

func TestMergeMovesPostsWithoutDuplicates(t *testing.T) {
	f := newMergeFixture(t)
	src := f.repo.addTag("orchid")
	tgt := f.repo.addTag("flower")
	f.repo.tagPost(1, src.ID)
	f.repo.tagPost(2, src.ID, tgt.ID)
	f.repo.tagPost(3, tgt.ID)

	merged, err := f.merge(t, "orchid", "flower")
	require.NoError(t, err)
	assert.Equal(t, "flower", merged.Name)

	assert.Equal(t, []int64{1, 2, 3}, f.repo.postsWith(tgt.ID))
	assert.Empty(t, f.repo.postsWith(src.ID))
	_, exists := f.repo.tags[src.ID]
	assert.False(t, exists)

	// posts that carried both keep a single association
	assert.Len(t, f.repo.postTags[2], 1)
}

func TestMergeFoldsAliases(t *testing.T) {
	f := newMergeFixture(t)
	src := f.repo.addTag("orchid", "orchidaceae")
	tgt := f.repo.addTag("flower", "bloom")
	f.repo.tagPost(1, src.ID)
	f.repo.tagPost(2, tgt.ID)

	merged, err := f.merge(t, "orchid", "flower")
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"bloom", "orchidaceae", "orchid"}, merged.Aliases)
	assert.Equal(t, tgt.ID, merged.ID)
}

func TestMergeIntoItselfIsNoOp(t *testing.T) {
	f := newMergeFixture(t)
	tag := f.repo.addTag("flower")
	f.repo.tagPost(1, tag.ID)

	merged, err := f.merge(t, "flower", "flower")
	require.NoError(t, err)
	assert.Equal(t, tag.ID, merged.ID)
	assert.Equal(t, []int64{1}, f.repo.postsWith(tag.ID))
}

func TestMergeAgainFailsWithNotFound(t *testing.T) {
	f := newMergeFixture(t)
	src := f.repo.addTag("orchid")
	tgt := f.repo.addTag("flower")
	f.repo.tagPost(1, src.ID)
	f.repo.tagPost(2, tgt.ID)

	_, err := f.merge(t, "orchid", "flower")
	require.NoError(t, err)

	// the source is gone; repeating the merge reports not-found and leaves
	// the target unchanged
	_, err = f.merge(t, "orchid", "flower")
	require.Error(t, err)
	assert.Equal(t, shared.KindNotFound, shared.KindOf(err))
	assert.Equal(t, []int64{1, 2}, f.repo.postsWith(tgt.ID))

	resolved, err := f.repo.FindByName(context.Background(), "flower")
	require.NoError(t, err)
	assert.True(t, resolved.HasAlias("orchid"))
}

func TestMergeMissingTarget(t *testing.T) {
	f := newMergeFixture(t)
	src := f.repo.addTag("orchid")
	f.repo.tagPost(1, src.ID)

	_, err := f.merge(t, "orchid", "flower")
	require.Error(t, err)
	assert.Equal(t, shared.KindNotFound, shared.KindOf(err))
	// failed merge leaves the source untouched
	assert.Equal(t, []int64{1}, f.repo.postsWith(src.ID))
}

func TestMergeSweepsUnusedTagsFirst(t *testing.T) {
	f := newMergeFixture(t)
	stale := f.repo.addTag("stale")
	src := f.repo.addTag("orchid")
	tgt := f.repo.addTag("flower")
	f.repo.tagPost(1, src.ID)
	f.repo.tagPost(2, tgt.ID)

	_, err := f.merge(t, "orchid", "flower")
	require.NoError(t, err)

	_, exists := f.repo.tags[stale.ID]
	assert.False(t, exists)
}

func TestMergeRequiresModerator(t *testing.T) {
	f := newMergeFixture(t)
	src := f.repo.addTag("orchid")
	tgt := f.repo.addTag("flower")
	f.repo.tagPost(1, src.ID, tgt.ID)

	actor := moderator()
	actor.Rank = access.Registered
	_, err := f.runner.Run(context.Background(), f.job, api.NewArgumentSet(map[string]string{
		api.ArgSourceTagName: "orchid",
		api.ArgTargetTagName: "flower",
	}), actor)
	require.Error(t, err)
	assert.Equal(t, shared.KindInsufficientPrivilege, shared.KindOf(err))
}

func TestMergeMissingArgumentsCollected(t *testing.T) {
	f := newMergeFixture(t)

	_, err := f.runner.Run(context.Background(), f.job, api.NewArgumentSet(nil), moderator())
	require.Error(t, err)
	var typed *shared.Error
	require.ErrorAs(t, err, &typed)
	assert.ElementsMatch(t, []string{api.ArgSourceTagName, api.ArgTargetTagName}, typed.MissingArgs)
}

func TestMergeAuditEntry(t *testing.T) {
	f := newMergeFixture(t)
	src := f.repo.addTag("orchid")
	tgt := f.repo.addTag("flower")
	f.repo.tagPost(1, src.ID)
	f.repo.tagPost(2, tgt.ID)

	_, err := f.merge(t, "orchid", "flower")
	require.NoError(t, err)

	log := f.logBuf.String()
	assert.Contains(t, log, "mod merged orchid with flower")
	assert.Len(t, strings.Split(strings.TrimRight(log, "\n"), "\n"), 1)
}
