package remote

import (
	"strings"

	"github.com/specsync/specsync/internal/config"
	"github.com/specsync/specsync/internal/types"
)

// Labels maps spec statuses to tracker labels and back. The mapping is total
// and bijective over the four statuses; an issue carrying no status label, or
// an unknown one, has no mapped status and is reported as drift by the sync
// engine.
type Labels struct {
	cfg config.LabelConfig
}

// NewLabels returns the label mapper for the configured namespace.
func NewLabels(cfg config.LabelConfig) *Labels {
	return &Labels{cfg: cfg}
}

// Marker is the label identifying spec-mirror issues.
func (l *Labels) Marker() string { return l.cfg.Marker }

// StatusPrefix is the namespace of the four status labels.
func (l *Labels) StatusPrefix() string { return l.cfg.StatusPrefix }

// ForStatus returns the tracker label for a status, e.g. merge_ready ->
// "spec-status:merge-ready".
func (l *Labels) ForStatus(status types.SpecStatus) string {
	return l.cfg.StatusPrefix + strings.ReplaceAll(string(status), "_", "-")
}

// All returns the marker plus every status label, for label provisioning.
func (l *Labels) All() []string {
	labels := []string{l.cfg.Marker}
	for _, s := range []types.SpecStatus{types.StatusTodo, types.StatusMergeReady, types.StatusCompleted, types.StatusAbandoned} {
		labels = append(labels, l.ForStatus(s))
	}
	return labels
}

// StatusFrom extracts the spec status from an issue's labels. ok is false
// when no status label is present or the label does not round-trip to a known
// status.
func (l *Labels) StatusFrom(labels []string) (types.SpecStatus, bool) {
	for _, label := range labels {
		if !strings.HasPrefix(label, l.cfg.StatusPrefix) {
			continue
		}
		status := types.SpecStatus(strings.ReplaceAll(strings.TrimPrefix(label, l.cfg.StatusPrefix), "-", "_"))
		if types.ValidSpecStatus(status) {
			return status, true
		}
		return "", false
	}
	return "", false
}

// IssueTitle builds the tracker title for a spec.
func (l *Labels) IssueTitle(specTitle string) string {
	return l.cfg.TitlePrefix + " " + specTitle
}

// SpecTitle strips the tracker prefix from an issue title.
func (l *Labels) SpecTitle(issueTitle string) string {
	return strings.TrimSpace(strings.TrimPrefix(issueTitle, l.cfg.TitlePrefix))
}

// PRTitle builds the merge-ready pull request title for a spec.
func (l *Labels) PRTitle(specTitle string) string {
	return l.cfg.ReadyTitlePrefix + " " + specTitle
}

// IsSpecIssue reports whether an issue carries the spec marker label.
func (l *Labels) IsSpecIssue(labels []string) bool {
	for _, label := range labels {
		if label == l.cfg.Marker {
			return true
		}
	}
	return false
}
