// ABOUTME: Parameter manager for simmer configuration tuning
// ABOUTME: Handles parameter value adjustments with boundary checking

package tui

import "playlist-simmer/config"

// Parameter represents a tunable simmer parameter with constraints
type Parameter struct {
	Name      string
	Value     *float64 // Pointer to actual config field
	IntValue  *int     // For integer parameters
	BoolValue *bool    // For switches; increase turns on, decrease turns off
	Min       float64
	Max       float64
	Step      float64
}

// IsInt reports whether the parameter is an integer
func (p Parameter) IsInt() bool { return p.IntValue != nil }

// IsBool reports whether the parameter is a switch
func (p Parameter) IsBool() bool { return p.BoolValue != nil }

// simmerParams builds the tunable parameter list over cfg
func simmerParams(cfg *config.Config) []Parameter {
	return []Parameter{
		{Name: "Distance Threshold", Value: &cfg.Clustering.DistanceThreshold, Min: 0.25, Max: 20, Step: 0.25},
		{Name: "Max Components", IntValue: &cfg.Clustering.MaxComponents, Min: 1, Max: 50, Step: 1},
		{Name: "Truncate Distances", BoolValue: &cfg.Clustering.TruncateDistances},
		{Name: "Chaos Offset", Value: &cfg.Chaos.Offset, Min: 0, Max: 100, Step: 1},
		{Name: "2-opt Polish", BoolValue: &cfg.Tour.TwoOpt},
		{Name: "Suggest", BoolValue: &cfg.Suggest.Enabled},
		{Name: "Suggest Divisor", IntValue: &cfg.Suggest.Divisor, Min: 1, Max: 20, Step: 1},
		{Name: "Candidates", IntValue: &cfg.Suggest.Candidates, Min: 1, Max: 20, Step: 1},
	}
}

// ParamManager manages simmer parameter adjustments
type ParamManager struct {
	params        []Parameter
	selectedIndex int
}

// NewParamManager creates a new parameter manager
func NewParamManager(params []Parameter) *ParamManager {
	return &ParamManager{
		params:        params,
		selectedIndex: 0,
	}
}

// Selected returns the index of the currently selected parameter
func (pm *ParamManager) Selected() int {
	return pm.selectedIndex
}

// SetSelected sets the selected parameter index
func (pm *ParamManager) SetSelected(index int) {
	if index >= 0 && index < len(pm.params) {
		pm.selectedIndex = index
	}
}

// SelectNext moves selection to the next parameter
func (pm *ParamManager) SelectNext() {
	if pm.selectedIndex < len(pm.params)-1 {
		pm.selectedIndex++
	}
}

// SelectPrevious moves selection to the previous parameter
func (pm *ParamManager) SelectPrevious() {
	if pm.selectedIndex > 0 {
		pm.selectedIndex--
	}
}

// Increase increases the selected parameter value
// Returns true if the value was changed
func (pm *ParamManager) Increase() bool {
	param := pm.GetSelected()
	if param == nil {
		return false
	}

	switch {
	case param.IsBool():
		if !*param.BoolValue {
			*param.BoolValue = true
			return true
		}
	case param.IsInt():
		newVal := *param.IntValue + int(param.Step)
		if float64(newVal) <= param.Max {
			*param.IntValue = newVal
			return true
		}
	default:
		newVal := *param.Value + param.Step
		// Clamp to max if we're very close (handles floating point precision)
		if newVal > param.Max && newVal <= param.Max+0.0001 {
			newVal = param.Max
		}
		if newVal <= param.Max {
			*param.Value = newVal
			return true
		}
	}

	return false
}

// Decrease decreases the selected parameter value
// Returns true if the value was changed
func (pm *ParamManager) Decrease() bool {
	param := pm.GetSelected()
	if param == nil {
		return false
	}

	switch {
	case param.IsBool():
		if *param.BoolValue {
			*param.BoolValue = false
			return true
		}
	case param.IsInt():
		newVal := *param.IntValue - int(param.Step)
		if float64(newVal) >= param.Min {
			*param.IntValue = newVal
			return true
		}
	default:
		newVal := *param.Value - param.Step
		// Clamp to min if we're very close (handles floating point precision)
		if newVal < param.Min && newVal >= param.Min-0.0001 {
			newVal = param.Min
		}
		if newVal >= param.Min {
			*param.Value = newVal
			return true
		}
	}

	return false
}

// ResetToDefaults resets all parameters to their default values
// Uses name-based lookup against a parameter list built over the defaults
func (pm *ParamManager) ResetToDefaults(defaults config.Config) {
	byName := make(map[string]Parameter)
	for _, p := range simmerParams(&defaults) {
		byName[p.Name] = p
	}

	for i := range pm.params {
		p := &pm.params[i]
		d, ok := byName[p.Name]
		if !ok {
			continue
		}

		switch {
		case p.IsBool() && d.IsBool():
			*p.BoolValue = *d.BoolValue
		case p.IsInt() && d.IsInt():
			*p.IntValue = *d.IntValue
		case p.Value != nil && d.Value != nil:
			*p.Value = *d.Value
		}
	}
}

// Get returns the parameter at the given index
func (pm *ParamManager) Get(index int) *Parameter {
	if index >= 0 && index < len(pm.params) {
		return &pm.params[index]
	}
	return nil
}

// GetSelected returns the currently selected parameter
func (pm *ParamManager) GetSelected() *Parameter {
	return pm.Get(pm.selectedIndex)
}

// Len returns the number of parameters
func (pm *ParamManager) Len() int {
	return len(pm.params)
}

// All returns all parameters (for rendering)
func (pm *ParamManager) All() []Parameter {
	return pm.params
}
