package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"

	"schoolsync/chat"
	"schoolsync/domain"
	"schoolsync/search"
)

// consoleSink echoes confirmed messages for the active room to the
// terminal as they arrive.
type consoleSink struct {
	session    domain.Session
	controller *chat.Controller
}

func (c consoleSink) Consume(_ context.Context, msg domain.Message) error {
	room, ok := c.controller.ActiveRoom()
	if !ok || room.ID != msg.RoomID {
		return nil
	}
	line := fmt.Sprintf("[%s] %s: %s",
		msg.Timestamp.Format(time.TimeOnly), msg.SenderName, msg.Content)
	if c.session.IsSelf(msg.SenderID) {
		color.Cyan.Println(line)
	} else {
		color.Green.Println(line)
	}
	return nil
}

func printHelp() {
	fmt.Println(`Commands:
  /rooms              refresh and list your chat rooms
  /join <room-id>     switch to a room
  /dm <email|code>    start a direct chat
  /history            show loaded messages for the active room
  /find <terms> [--room id] [--from "name"] [--limit n]
  /quit               exit
Anything else is sent to the active room.`)
}

func printRooms(rooms []domain.Room) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"ID", "Name", "Kind", "Unread"})
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	for _, room := range rooms {
		unread := ""
		if room.Unread > 0 {
			unread = chat.FormatUnread(room.Unread)
		}
		table.Append([]string{room.ID, room.Name, string(room.Kind), unread})
	}
	table.Render()
}

func printMessages(messages []domain.Message) {
	for _, msg := range messages {
		line := fmt.Sprintf("[%s] %s: %s",
			msg.Timestamp.Format(time.TimeOnly), msg.SenderName, msg.Content)
		switch {
		case msg.Failed:
			color.Red.Println(line + " (failed)")
		case msg.Optimistic:
			color.Gray.Println(line + " (sending...)")
		default:
			fmt.Println(line)
		}
	}
}

func printHits(hits []search.Hit) {
	if len(hits) == 0 {
		color.Yellow.Println("No match")
		return
	}
	for _, hit := range hits {
		fmt.Printf("[%s] (%s) %s: %s\n",
			hit.At.Format(time.DateTime), hit.RoomID, hit.Sender, hit.Content)
	}
}
