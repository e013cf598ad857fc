// Package viewer holds the application state of the motion viewer and turns UI actions into
// state transitions on it.
package viewer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Carmen-Shannon/oxy-motion/common"
	"github.com/Carmen-Shannon/oxy-motion/engine/camera"
	"github.com/Carmen-Shannon/oxy-motion/engine/motion"
	"github.com/Carmen-Shannon/oxy-motion/engine/playback"
	"github.com/Carmen-Shannon/oxy-motion/engine/registry"
	"github.com/Carmen-Shannon/oxy-motion/engine/scene"
	"github.com/Carmen-Shannon/oxy-motion/engine/skeleton"
)

// FrustumHelper is the scene helper line set the estimated camera frustum is drawn into.
const FrustumHelper = "estimated-camera"

// ErrMode is returned by operations that do not exist in the app's current mode.
var ErrMode = errors.New("viewer: operation not available in this mode")

// Mode selects between inspecting one file sample by sample and comparing several files side by side.
type Mode int

const (
	ModeSingle Mode = iota
	ModeCompare
)

func (m Mode) String() string {
	if m == ModeCompare {
		return "compare"
	}
	return "single"
}

// MarshalText implements encoding.TextMarshaler.
func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// ViewCamera selects which camera the scene is drawn through.
type ViewCamera int

const (
	ViewOrbit ViewCamera = iota
	ViewFollow
	ViewEstimated
)

func (v ViewCamera) String() string {
	switch v {
	case ViewFollow:
		return "follow"
	case ViewEstimated:
		return "estimated"
	default:
		return "orbit"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (v ViewCamera) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

// State is a snapshot of everything the control surface shows.
type State struct {
	Mode        Mode                 `json:"mode"`
	File        string               `json:"file,omitempty"`
	Playing     bool                 `json:"playing"`
	FPS         float64              `json:"fps"`
	Frame       int                  `json:"frame"`
	MinFrame    int                  `json:"min_frame"`
	MaxFrame    int                  `json:"max_frame"`
	Sample      int                  `json:"sample"`
	SampleCount int                  `json:"sample_count"`
	Prompt      string               `json:"prompt"`
	View        ViewCamera           `json:"view"`
	Slots       []registry.SlotState `json:"slots,omitempty"`
	Follow      *camera.Transform    `json:"follow,omitempty"`
	Estimated   *camera.Transform    `json:"estimated,omitempty"`
	RootInView  bool                 `json:"root_in_view"`
	Error       string               `json:"error,omitempty"`
}

type app struct {
	mu     *sync.Mutex
	logger *slog.Logger

	mode    Mode
	sc      scene.Scene
	fetcher motion.Fetcher
	clock   playback.Clock
	rig     camera.CameraRig
	reg     registry.Registry
	orbit   camera.Camera
	view    ViewCamera

	fileOptions []string
	jointColor  common.Color
	boneColor   common.Color
	showFrustum bool

	file    string
	source  *motion.Source
	skel    skeleton.View
	sample  int
	loadGen uint64
	loadErr error

	follow     camera.Transform
	estimated  camera.Transform
	posed      bool
	rootInView bool
}

// App is the viewer's explicit application state. Every UI action is a method call; all state
// transitions are serialized by one mutex, and Update runs the per-frame logic (clock tick, pose
// write, camera update) before the caller draws, so a frame never shows a partial pose.
type App interface {
	// Mode returns whether the app shows one file or compares slots.
	Mode() Mode

	// Load fetches a motion file and makes it current. In single mode it replaces the displayed
	// source and resets to sample 0, frame 0. In compare mode it binds the first slot, adding it
	// if there are none. A failed fetch leaves the previous state untouched.
	//
	// Parameters:
	//   - ctx: cancels the fetch
	//   - file: the motion file name
	//
	// Returns:
	//   - error: the wrapped fetch or decode error
	Load(ctx context.Context, file string) error

	// Reload fetches the current file again in single mode, or every slot in compare mode.
	//
	// Parameters:
	//   - ctx: cancels the fetch
	//
	// Returns:
	//   - error: the wrapped fetch or decode error
	Reload(ctx context.Context) error

	// TogglePlay flips between playing and paused and returns the new state.
	TogglePlay() bool

	// SetPlaying starts or pauses playback.
	SetPlaying(playing bool)

	// Scrub moves the frame cursor directly and poses every skeleton at it immediately.
	//
	// Parameters:
	//   - frame: the requested frame, wrapped into the active sample's range
	//
	// Returns:
	//   - int: the frame the cursor landed on
	Scrub(frame int) int

	// NextSample steps to the following sample of the current file, clamped to the last one,
	// and restarts at frame 0. Single mode only.
	//
	// Returns:
	//   - int: the active sample index
	NextSample() int

	// PrevSample steps to the preceding sample, clamped to 0, and restarts at frame 0.
	// Single mode only.
	//
	// Returns:
	//   - int: the active sample index
	PrevSample() int

	// AddSlot appends a comparison slot bound to the first file option. Compare mode only.
	//
	// Parameters:
	//   - ctx: cancels the reload
	//
	// Returns:
	//   - int: the new slot's index
	//   - error: ErrMode, or the registry's error
	AddSlot(ctx context.Context) (int, error)

	// RemoveLastSlot removes the most recently added slot. Compare mode only.
	//
	// Parameters:
	//   - ctx: cancels the reload
	//
	// Returns:
	//   - bool: true if a slot was removed
	RemoveLastSlot(ctx context.Context) bool

	// SetSlotFile binds a slot to a different file.
	SetSlotFile(ctx context.Context, idx int, file string) error

	// SetSlotVisible shows or hides a slot.
	SetSlotVisible(idx int, visible bool) error

	// ToggleSlotVisible flips a slot's visibility.
	ToggleSlotVisible(idx int) error

	// SetSlotColor recolors a slot.
	SetSlotColor(idx int, joint, bone common.Color) error

	// LoadAll reloads every slot. Compare mode only.
	LoadAll(ctx context.Context) error

	// Update advances the clock by dt seconds, poses every skeleton at the resulting frame and
	// updates the follow and estimated cameras.
	//
	// Parameters:
	//   - dt: seconds since the previous update
	Update(dt float64)

	// CycleView switches the scene camera orbit -> follow -> estimated -> orbit.
	// Compare mode has no follow or estimated camera and stays on orbit.
	//
	// Returns:
	//   - ViewCamera: the camera now drawn through
	CycleView() ViewCamera

	// SetFrustumVisible shows or hides the estimated camera frustum lines.
	SetFrustumVisible(visible bool)

	// Orbit rotates the orbit camera by a mouse drag in pixels.
	Orbit(dx, dy float32)

	// Zoom moves the orbit camera toward or away from its target.
	Zoom(delta float32)

	// HandleKey performs the action bound to a key.
	//
	// Parameters:
	//   - ctx: cancels reloads the key triggers
	//   - key: the key code, see common.Key*
	//
	// Returns:
	//   - bool: true if the key is bound to an action
	HandleKey(ctx context.Context, key int) bool

	// State returns a snapshot for the control surface.
	State() State

	// Registry returns the comparison slots, nil in single mode.
	Registry() registry.Registry

	// Clock returns the playback clock.
	Clock() playback.Clock

	// Close removes every skeleton from the scene.
	Close()
}

var _ App = &app{}

// NewApp creates an App drawing into sc and loading files through fetcher. The scene's camera
// becomes the orbit camera; one with a default controller is attached if the scene has none.
//
// Parameters:
//   - sc: the scene skeletons and helpers are drawn into
//   - fetcher: resolves motion file names
//   - options: functional options to configure the app
//
// Returns:
//   - App: the new app
func NewApp(sc scene.Scene, fetcher motion.Fetcher, options ...AppBuilderOption) App {
	a := &app{
		mu:         &sync.Mutex{},
		logger:     slog.Default(),
		sc:         sc,
		fetcher:    fetcher,
		jointColor: common.ColorRed,
		boneColor:  common.ColorBlue,
		follow:     camera.IdentityTransform(),
		estimated:  camera.IdentityTransform(),
	}
	for _, option := range options {
		option(a)
	}
	if a.clock == nil {
		a.clock = playback.NewClock()
	}
	if a.rig == nil {
		a.rig = camera.NewCameraRig(camera.WithRigLogger(a.logger))
	}
	if a.reg == nil && a.mode == ModeCompare {
		a.reg = registry.NewRegistry(sc, fetcher,
			registry.WithFileOptions(a.fileOptions...),
			registry.WithLogger(a.logger),
		)
	}
	if a.orbit = sc.Camera(); a.orbit == nil {
		a.orbit = camera.NewCamera(camera.WithController(camera.NewCameraController()))
		sc.SetCamera(a.orbit)
	}
	return a
}

func (a *app) Mode() Mode {
	return a.mode
}

func (a *app) Load(ctx context.Context, file string) error {
	if a.mode == ModeCompare {
		if a.reg.Len() == 0 {
			_, err := a.reg.AddSlot(ctx, file)
			a.sync()
			return err
		}
		err := a.reg.SetSlotFile(ctx, 0, file)
		a.sync()
		return err
	}

	a.mu.Lock()
	a.loadGen++
	gen := a.loadGen
	a.mu.Unlock()

	src, err := a.fetcher.Fetch(ctx, file)

	a.mu.Lock()
	defer a.mu.Unlock()
	if gen != a.loadGen {
		a.logger.Debug("discarding superseded load", "file", file)
		return nil
	}
	if err != nil {
		a.loadErr = err
		a.logger.Warn("motion load failed, keeping previous state", "file", file, "err", err)
		return fmt.Errorf("viewer: load %s: %w", file, err)
	}

	a.file = file
	a.source = src
	a.sample = 0
	a.loadErr = nil
	a.rig.Reset()
	a.clock.Reset()
	a.clock.SetFrameCount(a.frameCountLocked())
	a.sc.Update(func() {
		if a.skel != nil {
			a.skel.Destroy()
			a.skel = nil
		}
		if src.Len() > 0 {
			a.skel = skeleton.New(a.sc, a.jointColor, a.boneColor)
		}
		a.poseSingleLocked(a.clock.Frame())
	})
	a.logger.Info("motion loaded", "file", file, "samples", src.Len(), "camera", src.HasCamera(0))
	return nil
}

func (a *app) Reload(ctx context.Context) error {
	if a.mode == ModeCompare {
		return a.LoadAll(ctx)
	}
	a.mu.Lock()
	file := a.file
	a.mu.Unlock()
	if file == "" {
		return nil
	}
	return a.Load(ctx, file)
}

func (a *app) TogglePlay() bool {
	return a.clock.Toggle()
}

func (a *app) SetPlaying(playing bool) {
	a.clock.SetPlaying(playing)
}

func (a *app) Scrub(frame int) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.clock.SetFrameCount(a.frameCountLocked())
	f := a.clock.Seek(frame)
	a.poseLocked(f)
	return f
}

func (a *app) NextSample() int {
	return a.stepSample(1)
}

func (a *app) PrevSample() int {
	return a.stepSample(-1)
}

func (a *app) stepSample(delta int) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.mode != ModeSingle || a.source.Len() == 0 {
		return a.sample
	}
	a.sample = common.Clamp(a.sample+delta, 0, a.source.Len()-1)
	a.clock.Reset()
	a.syncLocked()
	return a.sample
}

func (a *app) AddSlot(ctx context.Context) (int, error) {
	if a.mode != ModeCompare {
		return -1, ErrMode
	}
	idx, err := a.reg.AddSlot(ctx, "")
	a.sync()
	return idx, err
}

func (a *app) RemoveLastSlot(ctx context.Context) bool {
	if a.mode != ModeCompare {
		return false
	}
	removed := a.reg.RemoveLastSlot(ctx)
	a.sync()
	return removed
}

func (a *app) SetSlotFile(ctx context.Context, idx int, file string) error {
	if a.mode != ModeCompare {
		return ErrMode
	}
	err := a.reg.SetSlotFile(ctx, idx, file)
	a.sync()
	return err
}

func (a *app) SetSlotVisible(idx int, visible bool) error {
	if a.mode != ModeCompare {
		return ErrMode
	}
	return a.reg.SetSlotVisible(idx, visible)
}

func (a *app) ToggleSlotVisible(idx int) error {
	if a.mode != ModeCompare {
		return ErrMode
	}
	slots := a.reg.Snapshot()
	if idx < 0 || idx >= len(slots) {
		return fmt.Errorf("%w: %d", registry.ErrSlotIndex, idx)
	}
	return a.reg.SetSlotVisible(idx, !slots[idx].Visible)
}

func (a *app) SetSlotColor(idx int, joint, bone common.Color) error {
	if a.mode != ModeCompare {
		return ErrMode
	}
	return a.reg.SetSlotColor(idx, joint, bone)
}

func (a *app) LoadAll(ctx context.Context) error {
	if a.mode != ModeCompare {
		return ErrMode
	}
	a.reg.LoadAll(ctx)
	a.sync()
	return nil
}

func (a *app) Update(dt float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if n := a.frameCountLocked(); n != a.clock.FrameCount() {
		a.clock.SetFrameCount(n)
	}
	_, frame := a.clock.Tick(dt)
	a.poseLocked(frame)
}

func (a *app) CycleView() ViewCamera {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.mode == ModeSingle {
		a.view = (a.view + 1) % 3
	}
	a.applyViewLocked()
	return a.view
}

func (a *app) SetFrustumVisible(visible bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.showFrustum = visible
	a.poseLocked(a.clock.Frame())
}

func (a *app) Orbit(dx, dy float32) {
	if ctrl := a.orbit.Controller(); ctrl != nil {
		ctrl.OrbitDrag(dx, dy)
		a.orbit.Update()
	}
}

func (a *app) Zoom(delta float32) {
	if ctrl := a.orbit.Controller(); ctrl != nil {
		ctrl.Zoom(delta)
		a.orbit.Update()
	}
}

func (a *app) HandleKey(ctx context.Context, key int) bool {
	switch key {
	case common.KeySpace:
		a.TogglePlay()
	case common.KeyLeft:
		a.Scrub(a.clock.Frame() - 1)
	case common.KeyRight:
		a.Scrub(a.clock.Frame() + 1)
	case common.KeyUp:
		a.PrevSample()
	case common.KeyDown:
		a.NextSample()
	case common.KeyEqual:
		if _, err := a.AddSlot(ctx); err != nil && !errors.Is(err, ErrMode) {
			a.logger.Warn("add slot failed", "err", err)
		}
	case common.KeyMinus:
		a.RemoveLastSlot(ctx)
	case common.KeyL:
		if err := a.Reload(ctx); err != nil {
			a.logger.Warn("reload failed", "err", err)
		}
	case common.KeyC:
		a.CycleView()
	case common.KeyF:
		a.mu.Lock()
		visible := !a.showFrustum
		a.mu.Unlock()
		a.SetFrustumVisible(visible)
	case common.KeyR:
		a.mu.Lock()
		a.clock.Reset()
		a.rig.Reset()
		a.poseLocked(0)
		a.mu.Unlock()
	case common.KeyW, common.KeyS, common.KeyA, common.KeyD, common.KeyQ, common.KeyE:
		a.pan(key)
	default:
		idx, ok := common.DigitIndex(key)
		if !ok {
			return false
		}
		if err := a.ToggleSlotVisible(idx); err != nil {
			a.logger.Debug("toggle slot visibility", "slot", idx, "err", err)
		}
	}
	return true
}

func (a *app) pan(key int) {
	ctrl := a.orbit.Controller()
	if ctrl == nil {
		return
	}
	switch key {
	case common.KeyW:
		ctrl.PanForward(1)
	case common.KeyS:
		ctrl.PanForward(-1)
	case common.KeyA:
		ctrl.PanRight(-1)
	case common.KeyD:
		ctrl.PanRight(1)
	case common.KeyQ:
		ctrl.PanUp(-1)
	case common.KeyE:
		ctrl.PanUp(1)
	}
	a.orbit.Update()
}

func (a *app) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()

	n := a.frameCountLocked()
	st := State{
		Mode:     a.mode,
		Playing:  a.clock.Playing(),
		FPS:      a.clock.FPS(),
		Frame:    a.clock.Frame(),
		MaxFrame: max(n-1, 0),
		View:     a.view,
	}
	switch a.mode {
	case ModeCompare:
		st.Slots = a.reg.Snapshot()
		if len(st.Slots) > 0 {
			st.File = st.Slots[0].File
		}
	default:
		st.File = a.file
		st.Sample = a.sample
		st.SampleCount = a.source.Len()
		st.Prompt = a.source.PromptText(a.sample)
		if a.posed {
			follow, estimated := a.follow, a.estimated
			st.Follow = &follow
			st.Estimated = &estimated
			st.RootInView = a.rootInView
		}
		if a.loadErr != nil {
			st.Error = a.loadErr.Error()
		}
	}
	return st
}

func (a *app) Registry() registry.Registry {
	return a.reg
}

func (a *app) Clock() playback.Clock {
	return a.clock
}

func (a *app) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.sc.Update(func() {
		if a.skel != nil {
			a.skel.Destroy()
			a.skel = nil
		}
		a.sc.SetHelperLines(FrustumHelper, nil)
	})
	if a.reg != nil {
		a.reg.Close()
	}
}

// sync re-reads the active frame count after the slot list changed and re-poses at the cursor.
func (a *app) sync() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.syncLocked()
}

// syncLocked requires a.mu.
func (a *app) syncLocked() {
	a.clock.SetFrameCount(a.frameCountLocked())
	a.poseLocked(a.clock.Frame())
}

func (a *app) frameCountLocked() int {
	if a.mode == ModeCompare {
		return max(a.reg.FrameCount(), 1)
	}
	return max(a.source.FrameCount(a.sample), 1)
}

// poseLocked writes frame into every skeleton and moves the auxiliary cameras. The scene is never
// drawn with a partly written pose.
func (a *app) poseLocked(frame int) {
	if a.mode == ModeCompare {
		a.reg.UpdatePose(frame)
		return
	}
	a.sc.Update(func() { a.poseSingleLocked(frame) })
}

// poseSingleLocked must run inside a scene Update.
func (a *app) poseSingleLocked(frame int) {
	sample, ok := a.source.Sample(a.sample)
	if !ok || a.skel == nil {
		a.sc.SetHelperLines(FrustumHelper, nil)
		return
	}
	a.skel.UpdatePose(sample, frame)

	root := a.skel.Root()
	extrinsic := a.source.Extrinsic(a.sample, frame)
	a.follow = a.rig.FollowPose(root)
	a.estimated = a.rig.EstimatedPose(extrinsic)
	a.rootInView = a.rig.EstimatedSees(extrinsic, root)
	a.posed = true

	if corners, ok := a.rig.EstimatedFrustum(extrinsic); ok && a.showFrustum {
		a.sc.SetHelperLines(FrustumHelper, common.FrustumLines(corners, common.ColorFrustum))
	} else {
		a.sc.SetHelperLines(FrustumHelper, nil)
	}
	a.applyViewLocked()
}

func (a *app) applyViewLocked() {
	cam := a.orbit
	if a.mode == ModeSingle {
		switch a.view {
		case ViewFollow:
			cam = a.rig.FollowCamera()
		case ViewEstimated:
			cam = a.rig.EstimatedCamera()
		}
	}
	if a.sc.Camera() != cam {
		a.sc.SetCamera(cam)
	}
}
