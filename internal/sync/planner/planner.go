package planner

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/input-output-hk/catalyst-forge-libs/blobsync/errors"
	"github.com/input-output-hk/catalyst-forge-libs/blobsync/internal/sync/scanner"
	"github.com/input-output-hk/catalyst-forge-libs/blobsync/internal/validation"
)

// Job is one file's unit of work.
type Job struct {
	// Key is the full object key, destination folder included
	Key string

	// LocalPath is the file to upload
	LocalPath string

	// Size is the file size in bytes
	Size int64

	// ModTime is the local modification time
	ModTime time.Time

	// Priority orders jobs (lower numbers first)
	Priority int

	// Err is set when the job cannot run; it becomes a failed outcome
	Err error
}

// Conflict is an object key claimed by more than one local file.
type Conflict struct {
	Key   string
	Paths []string
}

// Err returns the failure reported for every file of the conflict.
func (c *Conflict) Err() error {
	return errors.NewError("plan", fmt.Errorf("%w: %s claimed by %s",
		errors.ErrDuplicateKey, c.Key, strings.Join(c.Paths, ", "))).WithKey(c.Key)
}

// Planner creates upload jobs.
type Planner struct{}

// NewPlanner creates a new planner.
func NewPlanner() *Planner {
	return &Planner{}
}

// Plan builds jobs for entries under prefix. Keys claimed by several entries
// are returned as conflicts and get no job.
func (p *Planner) Plan(entries []*scanner.Entry, prefix string) ([]*Job, []*Conflict) {
	byKey := make(map[string][]*scanner.Entry, len(entries))
	order := make([]string, 0, len(entries))
	for _, e := range entries {
		key := JoinKey(prefix, e.Key)
		if _, seen := byKey[key]; !seen {
			order = append(order, key)
		}
		byKey[key] = append(byKey[key], e)
	}

	jobs := make([]*Job, 0, len(entries))
	var conflicts []*Conflict
	for _, key := range order {
		group := byKey[key]
		if len(group) > 1 {
			c := &Conflict{Key: key}
			for _, e := range group {
				c.Paths = append(c.Paths, e.Path)
			}
			conflicts = append(conflicts, c)
			continue
		}

		e := group[0]
		job := &Job{
			Key:       key,
			LocalPath: e.Path,
			Size:      e.Size,
			ModTime:   e.ModTime,
			Priority:  p.calculateUploadPriority(e.Size),
			Err:       e.Err,
		}
		if job.Err == nil {
			job.Err = validation.ValidateObjectKey(key)
		}
		jobs = append(jobs, job)
	}

	p.optimizePlan(jobs)
	return jobs, conflicts
}

// JoinKey prefixes key with the destination folder.
func JoinKey(prefix, key string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return key
	}
	return prefix + "/" + key
}

// calculateUploadPriority assigns priority based on file size.
// Smaller files get higher priority for faster feedback.
func (p *Planner) calculateUploadPriority(size int64) int {
	switch {
	case size < 1024*1024: // < 1MB
		return 1
	case size < 10*1024*1024: // < 10MB
		return 2
	case size < 100*1024*1024: // < 100MB
		return 3
	default: // >= 100MB
		return 4
	}
}

// optimizePlan sorts jobs by priority, then by key.
func (p *Planner) optimizePlan(jobs []*Job) {
	sort.SliceStable(jobs, func(i, j int) bool {
		if jobs[i].Priority != jobs[j].Priority {
			return jobs[i].Priority < jobs[j].Priority
		}
		return jobs[i].Key < jobs[j].Key
	})
}

// Stats summarizes a plan.
type Stats struct {
	// Files is the number of runnable jobs
	Files int

	// Bytes is the total size of runnable jobs
	Bytes int64
}

// GetStats returns statistics about the planned jobs, ignoring failed ones.
func (p *Planner) GetStats(jobs []*Job) Stats {
	var stats Stats
	for _, j := range jobs {
		if j.Err != nil {
			continue
		}
		stats.Files++
		stats.Bytes += j.Size
	}
	return stats
}
