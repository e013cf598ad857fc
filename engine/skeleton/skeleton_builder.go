package skeleton

// ViewBuilderOption is a functional option for configuring a View.
type ViewBuilderOption func(*view)

// WithJointSize sets the half-extent of the joint markers.
//
// Parameters:
//   - size: the marker half-extent
//
// Returns:
//   - ViewBuilderOption: functional option to set the marker size
func WithJointSize(size float32) ViewBuilderOption {
	return func(v *view) {
		if size > 0 {
			v.jointSize = size
		}
	}
}

// WithVisible sets whether the view starts visible.
//
// Parameters:
//   - visible: true to draw the view
//
// Returns:
//   - ViewBuilderOption: functional option to set the initial visibility
func WithVisible(visible bool) ViewBuilderOption {
	return func(v *view) {
		v.visible = visible
	}
}
