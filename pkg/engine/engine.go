// Package engine is the composition root: it wires together a source and
// destination vault's indices, peer journals, and object stores, drives
// them through the planner and applier, and reports the result. This is
// the only place that opens every other package at once; callers (the
// CLI, tests) should not need to touch the lower-level packages
// directly for a routine sync.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/castsync/cast/pkg/apply"
	"github.com/castsync/cast/pkg/index"
	"github.com/castsync/cast/pkg/objects"
	"github.com/castsync/cast/pkg/peer"
	"github.com/castsync/cast/pkg/plan"
	"github.com/castsync/cast/pkg/vault"
)

// Option configures a Sync or Reindex call.
type Option func(*options)

type options struct {
	logger      *slog.Logger
	forcedMode  plan.Mode
	indexMode   index.Mode
	autoFixIDs  bool
	dryRun      bool
	ruleID      string
	includeHubs bool
}

// WithLogger attaches a logger; nil is safe and disables logging.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithForcedMode overrides role-derived sync mode (an operator-forced
// mirror, typically).
func WithForcedMode(m plan.Mode) Option {
	return func(o *options) { o.forcedMode = m }
}

// WithRebuild forces a full index rebuild instead of incremental reuse.
func WithRebuild() Option {
	return func(o *options) { o.indexMode = index.Rebuild }
}

// WithAutoFixIDs injects a missing cast-id into documents that already
// declare cast-vaults or cast-type, during indexing.
func WithAutoFixIDs() Option {
	return func(o *options) { o.autoFixIDs = true }
}

// WithDryRun plans without applying; Result.Report is nil.
func WithDryRun() Option {
	return func(o *options) { o.dryRun = true }
}

// WithRule scopes Sync to the named sync rule declared in the source
// vault's configuration: only source entries matching the rule's select
// criteria are considered, mirroring the original implementation's
// rule_id-scoped scan_index.
func WithRule(ruleID string) Option {
	return func(o *options) { o.ruleID = ruleID }
}

// WithHubs includes folder-note hub documents in the sync; by default
// they are filtered out, matching the original implementation's default
// exclusion of hub/folder-note files from sync.
func WithHubs() Option {
	return func(o *options) { o.includeHubs = true }
}

// Result is the outcome of one Sync call.
type Result struct {
	SourceVaultID string
	DestVaultID   string
	Mode          plan.Mode
	Actions       []plan.Action
	Report        *apply.Report // nil for a dry run
}

// Sync plans and (unless dry-run) applies a one-directional sync from
// the vault at sourceRoot into the vault at destRoot. It opens both
// vaults, rebuilds/reuses their indices, loads the ordered-pair peer
// journals, and holds the destination's exclusive lock for the
// duration of planning and applying. The source vault is not locked: its
// documents are only read, while its peer journal for this pair is
// written.
func Sync(ctx context.Context, sourceRoot, destRoot string, opts ...Option) (*Result, error) {
	o := &options{indexMode: index.Incremental}
	for _, opt := range opts {
		opt(o)
	}
	log := o.logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	srcVault, err := vault.Open(sourceRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to open source vault: %w", err)
	}
	dstVault, err := vault.Open(destRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to open destination vault: %w", err)
	}

	if err := dstVault.Lock(); err != nil {
		return nil, fmt.Errorf("failed to lock destination vault: %w", err)
	}
	defer dstVault.Unlock()

	log.Info("indexing source", "root", sourceRoot)
	_, srcEntries, err := buildIndex(ctx, srcVault, o)
	if err != nil {
		return nil, fmt.Errorf("failed to index source vault: %w", err)
	}
	log.Info("indexing destination", "root", destRoot)
	dstIdx, dstEntries, err := buildIndex(ctx, dstVault, o)
	if err != nil {
		return nil, fmt.Errorf("failed to index destination vault: %w", err)
	}

	if !o.includeHubs {
		srcEntries = index.FilterHubs(srcEntries)
		dstEntries = index.FilterHubs(dstEntries)
	}
	if o.ruleID != "" {
		rule, err := findSyncRule(srcVault.Config.SyncRules, o.ruleID)
		if err != nil {
			return nil, err
		}
		selector := index.RuleSelector{
			PathsAny:   rule.PathsAny,
			Types:      rule.Types,
			Categories: rule.Categories,
			TagsAny:    rule.TagsAny,
			TagsAll:    rule.TagsAll,
		}
		srcEntries = selector.Select(srcEntries)
		if o.forcedMode == "" && rule.Mode != "" {
			o.forcedMode = plan.Mode(rule.Mode)
		}
	}

	dstObjects, err := objects.Open(dstVault.Layout.ObjectsDir())
	if err != nil {
		return nil, fmt.Errorf("failed to open destination object store: %w", err)
	}

	srcJournal, err := peer.Open(srcVault.Layout.PeersDir(), dstVault.Config.VaultID)
	if err != nil {
		return nil, fmt.Errorf("failed to open source peer journal: %w", err)
	}
	dstJournal, err := peer.Open(dstVault.Layout.PeersDir(), srcVault.Config.VaultID)
	if err != nil {
		return nil, fmt.Errorf("failed to open destination peer journal: %w", err)
	}

	readRoot := func(root string) plan.ContentReader {
		return func(relPath string) ([]byte, error) {
			return os.ReadFile(filepath.Join(root, relPath))
		}
	}

	actions, err := plan.Plan(plan.Request{
		LocalVaultID:  srcVault.Config.VaultID,
		RemoteVaultID: dstVault.Config.VaultID,
		ForcedMode:    o.forcedMode,
		SourceEntries: srcEntries,
		DestEntries:   dstEntries,
		SourceJournal: srcJournal,
		DestJournal:   dstJournal,
		Objects:       dstObjects,
		ReadSource:    readRoot(sourceRoot),
		ReadDest:      readRoot(destRoot),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to plan sync: %w", err)
	}

	result := &Result{
		SourceVaultID: srcVault.Config.VaultID,
		DestVaultID:   dstVault.Config.VaultID,
		Mode:          o.forcedMode,
		Actions:       actions,
	}

	if o.dryRun {
		return result, nil
	}

	report, err := apply.Apply(apply.Request{
		SourceRoot:    sourceRoot,
		DestRoot:      destRoot,
		SourceVaultID: srcVault.Config.VaultID,
		DestVaultID:   dstVault.Config.VaultID,
		Actions:       actions,
		DestIndex:     dstIdx,
		DestObjects:   dstObjects,
		SourceJournal: srcJournal,
		DestJournal:   dstJournal,
		Ephemeral:     dstVault.Config.EphemeralSet(),
		Logger:        log,
		Now:           time.Now,
	})
	if err != nil {
		return result, fmt.Errorf("failed to apply sync plan: %w", err)
	}
	result.Report = report

	srcJournal.MarkSynced()
	dstJournal.MarkSynced()
	if err := srcJournal.Save(); err != nil {
		return result, fmt.Errorf("failed to save source peer journal: %w", err)
	}
	if err := dstJournal.Save(); err != nil {
		return result, fmt.Errorf("failed to save destination peer journal: %w", err)
	}

	// Re-index the destination so its newly written/merged files are
	// reflected without requiring a separate index command.
	dstIdx2, _, err := buildIndex(ctx, dstVault, o)
	if err != nil {
		return result, fmt.Errorf("failed to re-index destination after apply: %w", err)
	}
	if err := dstIdx2.Save(); err != nil {
		return result, fmt.Errorf("failed to save destination index: %w", err)
	}

	return result, nil
}

// Reindex rebuilds a single vault's index without syncing, for the
// `cast index` CLI command.
func Reindex(ctx context.Context, root string, opts ...Option) ([]*index.Entry, error) {
	o := &options{indexMode: index.Incremental}
	for _, opt := range opts {
		opt(o)
	}

	v, err := vault.Open(root)
	if err != nil {
		return nil, fmt.Errorf("failed to open vault: %w", err)
	}

	idx, entries, err := buildIndex(ctx, v, o)
	if err != nil {
		return nil, err
	}
	if err := idx.Save(); err != nil {
		return nil, fmt.Errorf("failed to save index: %w", err)
	}
	return entries, nil
}

// findSyncRule looks up a named sync rule, mirroring the original
// implementation's rule_id lookup against src_config.sync_rules.
func findSyncRule(rules []vault.SyncRule, ruleID string) (vault.SyncRule, error) {
	for _, r := range rules {
		if r.ID == ruleID {
			return r, nil
		}
	}
	return vault.SyncRule{}, fmt.Errorf("rule %q not found in source vault configuration", ruleID)
}

func buildIndex(ctx context.Context, v *vault.Vault, o *options) (*index.Index, []*index.Entry, error) {
	return index.Build(ctx, v.Layout.Root, index.Options{
		Include:   v.Config.Include,
		Exclude:   v.Config.Exclude,
		Ephemeral: v.Config.EphemeralSet(),
		AutoFix:   o.autoFixIDs,
		Mode:      o.indexMode,
	})
}
