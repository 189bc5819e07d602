// ABOUTME: Viewport manager for cursor-to-middle scrolling over the result rows
// ABOUTME: Implements vim/less style viewport scrolling behavior

package tui

// ViewportManager handles cursor visibility and viewport scrolling
// Implements vim/less style scrolling: cursor moves to middle, then content scrolls
type ViewportManager struct {
	height     int // Viewport height in lines
	cursorPos  int // Current cursor position
	totalItems int // Total number of rows
}

// NewViewportManager creates a new viewport manager
func NewViewportManager(height, cursorPos, totalItems int) *ViewportManager {
	return &ViewportManager{
		height:     height,
		cursorPos:  cursorPos,
		totalItems: totalItems,
	}
}

// SetHeight updates the viewport height
func (vm *ViewportManager) SetHeight(height int) {
	vm.height = height
}

// SetCursorPos updates the cursor position
func (vm *ViewportManager) SetCursorPos(pos int) {
	vm.cursorPos = pos
}

// SetTotalItems updates the total row count
func (vm *ViewportManager) SetTotalItems(total int) {
	vm.totalItems = total
}

// ClampCursor moves pos into [0, totalItems) and returns it
func (vm *ViewportManager) ClampCursor(pos int) int {
	pos = min(pos, vm.totalItems-1)
	return max(pos, 0)
}

// CalculateOffset computes the viewport Y offset to keep cursor visible
//
// Scrolling behavior:
// - Top: cursor moves freely, viewport stays at 0
// - Middle: cursor stays at middle, content scrolls
// - Bottom: viewport shows the end, cursor moves to bottom
func (vm *ViewportManager) CalculateOffset() int {
	switch vm.Phase() {
	case TopPhase:
		return 0
	case MiddlePhase:
		return vm.cursorPos - vm.height/2
	default:
		return max(vm.totalItems-vm.height, 0)
	}
}

// ScrollPhase is the scrolling regime the cursor is in
type ScrollPhase int

// Scroll phases in cursor order
const (
	TopPhase    ScrollPhase = iota // Cursor moves, viewport at top
	MiddlePhase                    // Cursor at middle, content scrolls
	BottomPhase                    // Viewport at bottom, cursor moves
)

// Phase returns the current scrolling phase
func (vm *ViewportManager) Phase() ScrollPhase {
	if vm.totalItems == 0 || vm.height < 1 {
		return TopPhase
	}

	middle := vm.height / 2
	if vm.cursorPos < middle {
		return TopPhase
	}

	bottomThreshold := vm.totalItems - vm.height + middle
	if vm.cursorPos < bottomThreshold {
		return MiddlePhase
	}

	return BottomPhase
}
