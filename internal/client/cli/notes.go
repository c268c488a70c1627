package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"sort"
	"strconv"

	"github.com/dmitrijs2005/corkboard/internal/client/models"
	"github.com/dmitrijs2005/corkboard/internal/client/viewport"
)

func (a *App) list(ctx context.Context) {
	notes := a.store.Notes()
	sort.Slice(notes, func(i, j int) bool { return notes[i].ID < notes[j].ID })

	for _, n := range notes {
		marker := ""
		if n.State == models.NoteStatePending {
			marker = " (pending)"
		}
		fmt.Printf("%s%s  %q at (%.1f, %.1f) by %s\n", n.ID, marker, n.Title, n.X, n.Y, n.CreatedBy)
	}
}

func (a *App) addNote(ctx context.Context) {

	title, err := GetSimpleText(a.reader, "- Enter title", os.Stdout)
	if err != nil {
		log.Printf("error: %v", err)
		return
	}

	body, err := GetMultiline(a.reader, "- Enter note text:", os.Stdout)
	if err != nil {
		log.Printf("error: %v", err)
		return
	}

	// New notes land at the world point under the viewport center.
	center := a.view.Transform().ScreenToWorld(viewport.Point{X: viewportWidth / 2, Y: viewportHeight / 2})

	note, err := a.store.CreateNote(ctx, models.NoteDraft{
		Title: title,
		Body:  body,
		X:     center.X,
		Y:     center.Y,
		Color: a.config.CursorColor,
	})
	if err != nil {
		log.Printf("error: %v", err)
		return
	}

	fmt.Printf("Created %s at (%.1f, %.1f)\n", note.ID, note.X, note.Y)
}

func (a *App) show(ctx context.Context, args []string) {
	if len(args) == 0 {
		fmt.Println("Usage: show <id>")
		return
	}
	note, ok := a.store.Note(args[0])
	if !ok {
		fmt.Println("No such note:", args[0])
		return
	}
	fmt.Printf("%s [%s]\n", note.ID, note.State)
	fmt.Printf("  title: %s\n", note.Title)
	fmt.Printf("  body:  %s\n", note.Body)
	fmt.Printf("  at (%.1f, %.1f) z=%d color=%s by %s\n", note.X, note.Y, note.Z, note.Color, note.CreatedBy)
}

func (a *App) edit(ctx context.Context, args []string) {
	if len(args) == 0 {
		fmt.Println("Usage: edit <id>")
		return
	}
	id := args[0]
	if _, ok := a.store.Note(id); !ok {
		fmt.Println("No such note:", id)
		return
	}

	title, err := GetSimpleText(a.reader, "- New title (empty to keep)", os.Stdout)
	if err != nil {
		log.Printf("error: %v", err)
		return
	}
	body, err := GetMultiline(a.reader, "- New text (empty to keep):", os.Stdout)
	if err != nil {
		log.Printf("error: %v", err)
		return
	}

	var changes models.NoteChanges
	if title != "" {
		changes.Title = &title
	}
	if body != "" {
		changes.Body = &body
	}

	if err := a.store.UpdateNote(ctx, id, changes); err != nil {
		log.Printf("error: %v", err)
	}
}

func (a *App) delete(ctx context.Context, args []string) {
	if len(args) == 0 {
		fmt.Println("Usage: delete <id>")
		return
	}
	if err := a.store.DeleteNote(ctx, args[0]); err != nil {
		log.Printf("error: %v", err)
	}
}

// move simulates a drag: intermediate positions stream to peers, the durable
// write happens once with the final coordinates.
func (a *App) move(ctx context.Context, args []string) {
	if len(args) != 3 {
		fmt.Println("Usage: move <id> <x> <y>")
		return
	}
	id := args[0]
	x, errX := strconv.ParseFloat(args[1], 64)
	y, errY := strconv.ParseFloat(args[2], 64)
	if errX != nil || errY != nil {
		fmt.Println("Usage: move <id> <x> <y>")
		return
	}

	note, ok := a.store.Note(id)
	if !ok {
		fmt.Println("No such note:", id)
		return
	}

	if err := a.store.BeginDrag(id); err != nil {
		log.Printf("error: %v", err)
		return
	}
	// A real pointer drag produces many intermediate frames; approximate one.
	const steps = 3
	for i := 1; i <= steps; i++ {
		f := float64(i) / steps
		ix := note.X + (x-note.X)*f
		iy := note.Y + (y-note.Y)*f
		if err := a.store.DragTo(ctx, id, ix, iy); err != nil {
			log.Printf("error: %v", err)
			return
		}
	}
	if err := a.store.EndDrag(ctx, id); err != nil {
		log.Printf("error: %v", err)
		return
	}
	fmt.Printf("Moved %s to (%.1f, %.1f)\n", id, x, y)
}

func (a *App) attach(ctx context.Context, args []string) {
	if len(args) == 0 {
		fmt.Println("Usage: attach <id>")
		return
	}
	url, err := a.api.AttachmentPutURL(ctx, args[0])
	if err != nil {
		log.Printf("error: %v", err)
		return
	}
	fmt.Println("Upload the file with e.g.:")
	fmt.Printf("  curl -T <file> %q\n", url)
}

func (a *App) fetch(ctx context.Context, args []string) {
	if len(args) == 0 {
		fmt.Println("Usage: fetch <id>")
		return
	}
	url, err := a.api.AttachmentGetURL(ctx, args[0])
	if err != nil {
		log.Printf("error: %v", err)
		return
	}
	fmt.Println("Download URL:", url)
}
