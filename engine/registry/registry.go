// Package registry keeps the comparison slots of a motion viewer: each slot binds a motion file
// to its own skeleton view with per-slot colors and visibility.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-motion/common"
	"github.com/Carmen-Shannon/oxy-motion/engine/motion"
	"github.com/Carmen-Shannon/oxy-motion/engine/scene"
	"github.com/Carmen-Shannon/oxy-motion/engine/skeleton"
	"github.com/google/uuid"
)

// ErrSlotIndex is returned when a slot index does not name an existing slot.
var ErrSlotIndex = errors.New("registry: slot index out of range")

// ErrNoFileOptions is returned by AddSlot when there is no file a new slot could be bound to.
var ErrNoFileOptions = errors.New("registry: no motion file options")

// ColorPair is the joint and bone color of a slot.
type ColorPair struct {
	Joint common.Color `json:"joint"`
	Bone  common.Color `json:"bone"`
}

// DefaultPalette is cycled through as slots are added. The first pair matches the
// single-motion viewer's red joints on blue bones.
var DefaultPalette = []ColorPair{
	{Joint: 0xff0000, Bone: 0x0000ff},
	{Joint: 0x00a000, Bone: 0xff8000},
	{Joint: 0x8000ff, Bone: 0x00a0a0},
	{Joint: 0xffd000, Bone: 0x404040},
	{Joint: 0xff00c0, Bone: 0x006000},
	{Joint: 0x00c0ff, Bone: 0x800000},
}

// SlotState is a copy of one slot's user-visible state.
type SlotState struct {
	ID      string    `json:"id"`
	File    string    `json:"file"`
	Colors  ColorPair `json:"colors"`
	Visible bool      `json:"visible"`
	Loaded  bool      `json:"loaded"`
	Frames  int       `json:"frames"`
	Sample  int       `json:"sample"`
	Error   string    `json:"error,omitempty"`
}

type slot struct {
	id   uuid.UUID
	file string
	// pending is the file requested by SetSlotFile; it replaces file once its fetch succeeds
	pending string
	colors  ColorPair
	visible bool
	// cursor selects the sample within the source; always 0
	cursor int
	source *motion.Source
	view   skeleton.View
	err    error
}

// wanted returns the file the next reload should fetch for s.
func (s *slot) wanted() string {
	if s.pending != "" {
		return s.pending
	}
	return s.file
}

type sharedSource struct {
	src  *motion.Source
	refs int
}

type registry struct {
	mu     *sync.Mutex
	logger *slog.Logger

	sc          scene.Scene
	fetcher     motion.Fetcher
	fileOptions []string
	palette     []ColorPair
	added       int

	slots   []*slot
	sources map[string]*sharedSource

	generation uint64
	frame      int

	pool    worker.DynamicWorkerPool
	workers int
	timeout time.Duration
}

// Registry is the ordered list of comparison slots.
// Any change to the slot list or a slot's file reloads every slot's source and rebuilds every
// reloaded view. Fetches run in parallel on a worker pool; results are applied in slot order, and
// results from a reload that was superseded by a newer one are discarded. Slots bound to the same
// file within one reload share a single immutable motion.Source but keep separate views.
type Registry interface {
	// Len returns the number of slots.
	Len() int

	// FileOptions returns the file names a slot may be bound to.
	FileOptions() []string

	// SetFileOptions replaces the candidate file names.
	SetFileOptions(files []string)

	// AddSlot appends a slot bound to defaultFile (or the first file option when empty) with the
	// next palette color, then reloads every slot.
	//
	// Parameters:
	//   - ctx: cancels the reload fetches
	//   - defaultFile: the file to bind, empty for the first file option
	//
	// Returns:
	//   - int: the index of the new slot
	//   - error: ErrNoFileOptions if no file can be chosen
	AddSlot(ctx context.Context, defaultFile string) (int, error)

	// RemoveLastSlot pops the most recently added slot and reloads the rest.
	// No-op when there are no slots.
	//
	// Parameters:
	//   - ctx: cancels the reload fetches
	//
	// Returns:
	//   - bool: true if a slot was removed
	RemoveLastSlot(ctx context.Context) bool

	// SetSlotFile binds one slot to a different file and reloads every slot. The slot keeps its
	// previous file, source and view if the new file cannot be fetched.
	//
	// Parameters:
	//   - ctx: cancels the reload fetches
	//   - idx: the slot index
	//   - file: the new file name
	//
	// Returns:
	//   - error: ErrSlotIndex if idx is out of range
	SetSlotFile(ctx context.Context, idx int, file string) error

	// SetSlotVisible shows or hides one slot's skeleton without reloading.
	//
	// Parameters:
	//   - idx: the slot index
	//   - visible: true to draw the slot
	//
	// Returns:
	//   - error: ErrSlotIndex if idx is out of range
	SetSlotVisible(idx int, visible bool) error

	// SetSlotColor recolors one slot's skeleton without reloading.
	//
	// Parameters:
	//   - idx: the slot index
	//   - joint: the joint color
	//   - bone: the bone color
	//
	// Returns:
	//   - error: ErrSlotIndex if idx is out of range
	SetSlotColor(idx int, joint, bone common.Color) error

	// LoadAll reloads every slot's source.
	//
	// Parameters:
	//   - ctx: cancels the reload fetches
	LoadAll(ctx context.Context)

	// UpdatePose poses every visible slot at the given frame, each wrapped to its own sample length.
	//
	// Parameters:
	//   - frame: the shared frame cursor
	UpdatePose(frame int)

	// FrameCount returns the frame count of the first slot with a loaded sample, 0 if none.
	FrameCount() int

	// Views returns the live skeleton views in slot order.
	Views() []skeleton.View

	// SourceRefs returns how many slots currently share the source of a file.
	SourceRefs(file string) int

	// Snapshot returns a copy of every slot's state.
	Snapshot() []SlotState

	// Close destroys every view.
	Close()
}

var _ Registry = &registry{}

// NewRegistry creates an empty Registry drawing into sc and loading through fetcher.
//
// Parameters:
//   - sc: the scene skeleton views are added to
//   - fetcher: resolves file names to motion sources
//   - options: functional options to configure the registry
//
// Returns:
//   - Registry: the new registry
func NewRegistry(sc scene.Scene, fetcher motion.Fetcher, options ...RegistryBuilderOption) Registry {
	r := &registry{
		mu:      &sync.Mutex{},
		logger:  slog.Default(),
		sc:      sc,
		fetcher: fetcher,
		palette: DefaultPalette,
		sources: make(map[string]*sharedSource),
		workers: max(runtime.NumCPU()-1, 1),
		timeout: 30 * time.Second,
	}
	for _, option := range options {
		option(r)
	}
	r.pool = worker.NewDynamicWorkerPool(r.workers, 256, 1*time.Second)
	return r
}

func (r *registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.slots)
}

func (r *registry) FileOptions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.fileOptions...)
}

func (r *registry) SetFileOptions(files []string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fileOptions = append([]string(nil), files...)
}

func (r *registry) AddSlot(ctx context.Context, defaultFile string) (int, error) {
	r.mu.Lock()
	file := defaultFile
	if file == "" {
		if len(r.fileOptions) == 0 {
			r.mu.Unlock()
			return -1, ErrNoFileOptions
		}
		file = r.fileOptions[0]
	}
	s := &slot{
		id:      uuid.New(),
		file:    file,
		colors:  r.palette[r.added%len(r.palette)],
		visible: true,
	}
	r.added++
	r.slots = append(r.slots, s)
	idx := len(r.slots) - 1
	r.logger.Info("slot added", "slot", idx, "id", s.id, "file", file)
	r.mu.Unlock()

	r.reload(ctx)
	return idx, nil
}

func (r *registry) RemoveLastSlot(ctx context.Context) bool {
	r.mu.Lock()
	if len(r.slots) == 0 {
		r.mu.Unlock()
		return false
	}
	last := r.slots[len(r.slots)-1]
	r.slots = r.slots[:len(r.slots)-1]
	if last.view != nil {
		r.sc.Update(last.view.Destroy)
		last.view = nil
	}
	r.logger.Info("slot removed", "slot", len(r.slots), "id", last.id, "file", last.file)
	r.mu.Unlock()

	r.reload(ctx)
	return true
}

func (r *registry) SetSlotFile(ctx context.Context, idx int, file string) error {
	r.mu.Lock()
	if idx < 0 || idx >= len(r.slots) {
		r.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrSlotIndex, idx)
	}
	r.slots[idx].pending = file
	r.mu.Unlock()

	r.reload(ctx)
	return nil
}

func (r *registry) SetSlotVisible(idx int, visible bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if idx < 0 || idx >= len(r.slots) {
		return fmt.Errorf("%w: %d", ErrSlotIndex, idx)
	}
	s := r.slots[idx]
	s.visible = visible
	if s.view != nil {
		r.sc.Update(func() {
			s.view.SetVisible(visible)
			if visible {
				r.pose(s)
			}
		})
	}
	return nil
}

func (r *registry) SetSlotColor(idx int, joint, bone common.Color) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if idx < 0 || idx >= len(r.slots) {
		return fmt.Errorf("%w: %d", ErrSlotIndex, idx)
	}
	s := r.slots[idx]
	s.colors = ColorPair{Joint: joint, Bone: bone}
	if s.view != nil {
		r.sc.Update(func() { s.view.SetColors(joint, bone) })
	}
	return nil
}

func (r *registry) LoadAll(ctx context.Context) {
	r.reload(ctx)
}

func (r *registry) UpdatePose(frame int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frame = frame
	r.sc.Update(func() {
		for _, s := range r.slots {
			if s.visible {
				r.pose(s)
			}
		}
	})
}

// pose writes the current frame into a slot's view. Caller must hold r.mu.
func (r *registry) pose(s *slot) {
	if s.view == nil {
		return
	}
	sample, ok := s.source.Sample(s.cursor)
	if !ok {
		return
	}
	s.view.UpdatePose(sample, r.frame)
}

func (r *registry) FrameCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.slots {
		if n := s.source.FrameCount(s.cursor); n > 0 {
			return n
		}
	}
	return 0
}

func (r *registry) Views() []skeleton.View {
	r.mu.Lock()
	defer r.mu.Unlock()
	var views []skeleton.View
	for _, s := range r.slots {
		if s.view != nil {
			views = append(views, s.view)
		}
	}
	return views
}

func (r *registry) SourceRefs(file string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if shared, ok := r.sources[file]; ok {
		return shared.refs
	}
	return 0
}

func (r *registry) Snapshot() []SlotState {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]SlotState, len(r.slots))
	for i, s := range r.slots {
		out[i] = SlotState{
			ID:      s.id.String(),
			File:    s.file,
			Colors:  s.colors,
			Visible: s.visible,
			Loaded:  s.view != nil,
			Frames:  s.source.FrameCount(s.cursor),
			Sample:  s.cursor,
		}
		if s.err != nil {
			out[i].Error = s.err.Error()
		}
	}
	return out
}

func (r *registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.generation++
	r.sc.Update(func() {
		for _, s := range r.slots {
			if s.view != nil {
				s.view.Destroy()
				s.view = nil
			}
		}
	})
	r.sources = make(map[string]*sharedSource)
}

type fetchResult struct {
	src *motion.Source
	err error
}

// reload fetches the source of every slot and rebuilds their views. Fetches run without the lock
// held; if another reload starts meanwhile, this one's results are dropped.
func (r *registry) reload(ctx context.Context) {
	r.mu.Lock()
	r.generation++
	gen := r.generation
	var files []string
	seen := make(map[string]bool)
	for _, s := range r.slots {
		if file := s.wanted(); !seen[file] {
			seen[file] = true
			files = append(files, file)
		}
	}
	r.mu.Unlock()

	results := r.fetchAll(ctx, files)

	r.mu.Lock()
	defer r.mu.Unlock()
	if gen != r.generation {
		r.logger.Debug("discarding superseded reload", "generation", gen, "current", r.generation)
		return
	}

	sources := make(map[string]*sharedSource)
	r.sc.Update(func() {
		// Views of every slot that is about to be rebuilt are removed before any new view is built.
		for _, s := range r.slots {
			if res, ok := results[s.wanted()]; ok && res.err == nil && s.view != nil {
				s.view.Destroy()
				s.view = nil
			}
		}

		for i, s := range r.slots {
			file := s.wanted()
			res, ok := results[file]
			if !ok {
				continue
			}
			s.pending = ""
			if res.err != nil {
				s.err = res.err
				r.logger.Warn("motion fetch failed, keeping previous state", "slot", i, "file", file, "kept", s.file, "err", res.err)
				continue
			}
			s.err = nil
			s.file = file
			s.source = res.src
			s.view = skeleton.New(r.sc, s.colors.Joint, s.colors.Bone, skeleton.WithVisible(s.visible))
			r.pose(s)
			shared, ok := sources[file]
			if !ok {
				shared = &sharedSource{src: res.src}
				sources[file] = shared
			}
			shared.refs++
		}
	})
	r.sources = sources
	r.logger.Info("slots reloaded", "slots", len(r.slots), "sources", len(sources), "generation", gen)
}

// fetchAll loads each distinct file once on the worker pool and waits for all of them.
func (r *registry) fetchAll(ctx context.Context, files []string) map[string]fetchResult {
	out := make(map[string]fetchResult, len(files))
	if len(files) == 0 {
		return out
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	results := make([]fetchResult, len(files))
	var wg sync.WaitGroup
	for i, file := range files {
		wg.Add(1)
		idx, name := i, file
		r.pool.SubmitTask(worker.Task{
			ID: idx,
			Do: func() (any, error) {
				defer wg.Done()
				src, err := r.fetcher.Fetch(ctx, name)
				results[idx] = fetchResult{src: src, err: err}
				return src, err
			},
		})
	}
	wg.Wait()

	for i, file := range files {
		out[file] = results[i]
	}
	return out
}
