package cli

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"os"
	"strings"
)

func (a *App) getStatus() string {
	s := ""
	if a.displayName != "" {
		s = a.displayName + "@" + a.config.RoomID
	}
	if s != "" {
		s = fmt.Sprintf("(%s)", s)
	}
	return s
}

func (a *App) Root(ctx context.Context) {

	log.Println("Welcome to Corkboard CLI (type 'help' for commands)")
	scanner := bufio.NewScanner(os.Stdin)

	if err := a.Login(ctx); err != nil {
		log.Printf("login failed: %v", err)
		return
	}
	if err := a.join(ctx); err != nil {
		log.Printf("error joining room %s: %v", a.config.RoomID, err)
		return
	}

	for {
		fmt.Printf("cork %s> ", a.getStatus())
		if !scanner.Scan() {
			break
		}
		line := scanner.Text()
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}

		cmd := parts[0]
		args := parts[1:]

		switch cmd {
		case "help":
			fmt.Println("Notes:    (l)ist, add, show <id>, edit <id>, move <id> <x> <y>, delete <id>")
			fmt.Println("Files:    attach <id>, fetch <id>")
			fmt.Println("Canvas:   pan <dx> <dy>, zoom <factor>, resetview, view")
			fmt.Println("Presence: cursor <sx> <sy>, cursors")
			fmt.Println("Other:    exit")

		case "l", "list":
			a.list(ctx)
		case "add":
			a.addNote(ctx)
		case "show":
			a.show(ctx, args)
		case "edit":
			a.edit(ctx, args)
		case "move":
			a.move(ctx, args)
		case "delete":
			a.delete(ctx, args)
		case "attach":
			a.attach(ctx, args)
		case "fetch":
			a.fetch(ctx, args)
		case "pan":
			a.pan(args)
		case "zoom":
			a.zoom(args)
		case "resetview":
			a.view.Reset()
			a.printTransform()
		case "view":
			a.printTransform()
		case "cursor":
			a.cursor(args)
		case "cursors":
			a.cursors()
		case "exit", "quit":
			fmt.Println("Bye!")
			return
		default:
			fmt.Println("Unknown command:", cmd)
		}
	}

}
