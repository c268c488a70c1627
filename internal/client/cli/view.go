package cli

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/dmitrijs2005/corkboard/internal/client/viewport"
)

func (a *App) printTransform() {
	tr := a.view.Transform()
	fmt.Printf("pan=(%.1f, %.1f) scale=%.2f\n", tr.PanX, tr.PanY, tr.Scale)
}

// pan scrolls the canvas, like a wheel event without the zoom modifier.
func (a *App) pan(args []string) {
	if len(args) != 2 {
		fmt.Println("Usage: pan <dx> <dy>")
		return
	}
	dx, errX := strconv.ParseFloat(args[0], 64)
	dy, errY := strconv.ParseFloat(args[1], 64)
	if errX != nil || errY != nil {
		fmt.Println("Usage: pan <dx> <dy>")
		return
	}
	a.view.Wheel(viewport.Point{}, -dx, -dy, false)
	a.printTransform()
}

// zoom scales toward the viewport center, like keyboard zoom.
func (a *App) zoom(args []string) {
	if len(args) != 1 {
		fmt.Println("Usage: zoom <factor>")
		return
	}
	factor, err := strconv.ParseFloat(args[0], 64)
	if err != nil || factor <= 0 {
		fmt.Println("Usage: zoom <factor>")
		return
	}
	tr := a.view.Transform()
	a.view.ZoomToPoint(viewport.Point{X: viewportWidth / 2, Y: viewportHeight / 2}, tr.Scale*factor)
	a.printTransform()
}

// cursor reports a pointer position in screen space. It is converted to
// world space through the current transform before leaving the client, and
// rate-limited by the presence throttler.
func (a *App) cursor(args []string) {
	if len(args) != 2 {
		fmt.Println("Usage: cursor <sx> <sy>")
		return
	}
	sx, errX := strconv.ParseFloat(args[0], 64)
	sy, errY := strconv.ParseFloat(args[1], 64)
	if errX != nil || errY != nil {
		fmt.Println("Usage: cursor <sx> <sy>")
		return
	}
	world := a.view.Transform().ScreenToWorld(viewport.Point{X: sx, Y: sy})
	a.presence.Offer(world.X, world.Y)
	fmt.Printf("cursor at world (%.1f, %.1f)\n", world.X, world.Y)
}

func (a *App) cursors() {
	cursors := a.store.Cursors()
	sort.Slice(cursors, func(i, j int) bool { return cursors[i].ParticipantID < cursors[j].ParticipantID })

	if len(cursors) == 0 {
		fmt.Println("Nobody else is here.")
		return
	}
	for _, c := range cursors {
		name := c.DisplayName
		if name == "" {
			name = c.ParticipantID
		}
		fmt.Printf("%s (%s) at (%.1f, %.1f)\n", name, c.Color, c.X, c.Y)
	}
}
