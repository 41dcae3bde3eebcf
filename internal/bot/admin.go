package bot

import (
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	"whatsapp-deposit-bot/internal/database"
	"whatsapp-deposit-bot/internal/directory"
	"whatsapp-deposit-bot/internal/identity"
	"whatsapp-deposit-bot/internal/templates"
)

const (
	// BackKeyword abandons the current admin flow.
	BackKeyword = "0"
	// MenuKeyword abandons the current admin flow and re-shows the root menu.
	MenuKeyword = "00"
)

type adminState int

const (
	awaitAddIndividual adminState = iota
	awaitDelIndividual
	awaitAddGroup
	awaitDelGroup
	awaitBroadcastMessage
	awaitBroadcastConfirm
	awaitTemplateChoice
	awaitTemplateValue
	awaitAddOperator
	awaitDelOperator
)

type broadcastTarget int

const (
	targetIndividuals broadcastTarget = iota + 1
	targetGroups
	targetEveryone
)

type adminSession struct {
	state adminState

	// template editing
	templateKey   templates.Key
	editChannelID bool

	// broadcast scratch
	target  broadcastTarget
	message string
}

const adminMenu = `*Admin menu*
1. Add recipient
2. View recipients
3. Delete recipient
4. Add group
5. View groups
6. Delete group
7. Broadcast to recipients
8. Broadcast to groups
9. Broadcast to everyone
10. Edit templates
11. Add operator
12. Remove operator

Reply with a number. 0 goes back, 00 shows this menu.`

const templateMenu = `*Templates*
1. Welcome
2. Deposit chosen
3. Payment initiated
4. Countdown update
5. Payment success
6. Payment footer
7. Admin label
8. Payment channel ID

Reply with a number to edit.`

func (d *Dispatcher) handleAdmin(from, body string) {
	text := strings.TrimSpace(body)

	// Universal transitions, available from every state.
	switch text {
	case BackKeyword:
		delete(d.admins, from)
		d.Send(from, "Okay, cancelled.")
		return
	case MenuKeyword:
		delete(d.admins, from)
		d.Send(from, adminMenu)
		return
	}

	sess, ok := d.admins[from]
	if !ok {
		d.handleAdminMenu(from, text)
		return
	}

	switch sess.state {
	case awaitAddIndividual:
		id, err := d.store.AddIndividual(text)
		if err != nil {
			d.Send(from, "That does not look like a valid phone number. Try again, or 0 to cancel.")
			return
		}
		delete(d.admins, from)
		d.Send(from, "Added recipient "+id)

	case awaitDelIndividual:
		id, err := d.store.RemoveIndividual(text)
		if errors.Is(err, identity.ErrInvalidIdentity) {
			d.Send(from, "That does not look like a valid phone number. Try again, or 0 to cancel.")
			return
		}
		delete(d.admins, from)
		if errors.Is(err, directory.ErrNotFound) {
			d.Send(from, "That number is not a registered recipient.")
			return
		}
		d.Send(from, "Removed recipient "+id)

	case awaitAddGroup:
		id, err := d.store.AddGroup(text)
		if err != nil {
			d.Send(from, "Group IDs end with "+identity.GroupSuffix+". Try again, or 0 to cancel.")
			return
		}
		delete(d.admins, from)
		d.Send(from, "Added group "+id)

	case awaitDelGroup:
		id, err := d.store.RemoveGroup(text)
		if errors.Is(err, identity.ErrInvalidIdentity) {
			d.Send(from, "Group IDs end with "+identity.GroupSuffix+". Try again, or 0 to cancel.")
			return
		}
		delete(d.admins, from)
		if errors.Is(err, directory.ErrNotFound) {
			d.Send(from, "That group is not registered.")
			return
		}
		d.Send(from, "Removed group "+id)

	case awaitBroadcastMessage:
		sess.message = body
		sess.state = awaitBroadcastConfirm
		d.Send(from, fmt.Sprintf("Broadcast to %d recipient(s). Reply 1 to send, 2 to cancel.",
			len(d.broadcastRecipients(sess.target))))

	case awaitBroadcastConfirm:
		switch text {
		case "1":
			delete(d.admins, from)
			sent, total := d.broadcast(sess.target, sess.message)
			d.Send(from, fmt.Sprintf("Broadcast delivered to %d of %d recipient(s).", sent, total))
		case "2":
			delete(d.admins, from)
			d.Send(from, "Broadcast cancelled.")
		default:
			d.Send(from, "Reply 1 to send, 2 to cancel.")
		}

	case awaitTemplateChoice:
		d.handleTemplateChoice(from, sess, text)

	case awaitTemplateValue:
		if sess.editChannelID {
			id, err := strconv.Atoi(text)
			if err != nil {
				d.Send(from, "The channel ID must be a number. Try again, or 0 to cancel.")
				return
			}
			d.tset.SetChannelID(id)
			delete(d.admins, from)
			d.Send(from, "Channel ID updated to "+text)
			return
		}
		d.tset.Put(sess.templateKey, body)
		delete(d.admins, from)
		d.Send(from, "Template updated.")

	case awaitAddOperator:
		id, err := d.store.AddOperator(from, text)
		if errors.Is(err, directory.ErrUnauthorized) {
			delete(d.admins, from)
			d.Send(from, "Only the super operator can manage operators.")
			return
		}
		if err != nil {
			d.Send(from, "That does not look like a valid phone number. Try again, or 0 to cancel.")
			return
		}
		delete(d.admins, from)
		d.Send(from, "Added operator "+id)

	case awaitDelOperator:
		id, err := d.store.RemoveOperator(from, text)
		if errors.Is(err, identity.ErrInvalidIdentity) {
			d.Send(from, "That does not look like a valid phone number. Try again, or 0 to cancel.")
			return
		}
		delete(d.admins, from)
		switch {
		case errors.Is(err, directory.ErrUnauthorized):
			d.Send(from, "Only the super operator can manage operators.")
		case errors.Is(err, directory.ErrProtected):
			d.Send(from, "The super operator cannot be removed.")
		case errors.Is(err, directory.ErrNotFound):
			d.Send(from, "That number is not an operator.")
		default:
			d.Send(from, "Removed operator "+id)
		}
	}
}

func (d *Dispatcher) handleAdminMenu(from, text string) {
	switch text {
	case "1":
		d.admins[from] = &adminSession{state: awaitAddIndividual}
		d.Send(from, "Send the phone number to add as a recipient.")
	case "2":
		d.Send(from, listOrEmpty("Recipients", d.store.Individuals()))
	case "3":
		d.admins[from] = &adminSession{state: awaitDelIndividual}
		d.Send(from, "Send the phone number to remove.")
	case "4":
		d.admins[from] = &adminSession{state: awaitAddGroup}
		d.Send(from, "Send the group ID to add (ends with "+identity.GroupSuffix+").")
	case "5":
		d.Send(from, listOrEmpty("Groups", d.store.Groups()))
	case "6":
		d.admins[from] = &adminSession{state: awaitDelGroup}
		d.Send(from, "Send the group ID to remove.")
	case "7":
		d.admins[from] = &adminSession{state: awaitBroadcastMessage, target: targetIndividuals}
		d.Send(from, "Send the message to broadcast to recipients.")
	case "8":
		d.admins[from] = &adminSession{state: awaitBroadcastMessage, target: targetGroups}
		d.Send(from, "Send the message to broadcast to groups.")
	case "9":
		d.admins[from] = &adminSession{state: awaitBroadcastMessage, target: targetEveryone}
		d.Send(from, "Send the message to broadcast to everyone.")
	case "10":
		d.admins[from] = &adminSession{state: awaitTemplateChoice}
		d.Send(from, templateMenu)
	case "11":
		if from != d.store.SuperOperator() {
			d.Send(from, "Only the super operator can manage operators.")
			return
		}
		d.admins[from] = &adminSession{state: awaitAddOperator}
		d.Send(from, "Send the phone number to add as an operator.")
	case "12":
		if from != d.store.SuperOperator() {
			d.Send(from, "Only the super operator can manage operators.")
			return
		}
		d.admins[from] = &adminSession{state: awaitDelOperator}
		d.Send(from, listOrEmpty("Operators", d.store.Operators())+
			"\nSend the phone number to remove as an operator.")
	default:
		d.Send(from, adminMenu)
	}
}

func (d *Dispatcher) handleTemplateChoice(from string, sess *adminSession, text string) {
	keys := templates.EditableKeys()

	choice, err := strconv.Atoi(text)
	if err != nil || choice < 1 || choice > len(keys)+1 {
		d.Send(from, templateMenu)
		return
	}

	if choice == len(keys)+1 {
		sess.editChannelID = true
		sess.state = awaitTemplateValue
		d.Send(from, "Current channel ID: "+d.tset.FormatChannelID()+"\nSend the new channel ID.")
		return
	}

	sess.templateKey = keys[choice-1]
	sess.state = awaitTemplateValue
	d.Send(from, "Current value:\n"+d.tset.Get(sess.templateKey)+"\nSend the new text.")
}

func (d *Dispatcher) broadcastRecipients(target broadcastTarget) []string {
	switch target {
	case targetIndividuals:
		return d.store.Individuals()
	case targetGroups:
		return d.store.Groups()
	default:
		return append(d.store.Individuals(), d.store.Groups()...)
	}
}

// broadcast attempts delivery to every recipient of the target audience.
// Individual failures are logged and skipped, never aborting the remainder.
func (d *Dispatcher) broadcast(target broadcastTarget, message string) (sent, total int) {
	recipients := d.broadcastRecipients(target)
	for _, to := range recipients {
		status := "sent"
		if err := d.sender.SendMessage(to, message); err != nil {
			status = "failed"
			log.Printf("Failed to broadcast to %s: %v", to, err)
		} else {
			sent++
		}
		database.LogMessage(to, "out", message, status)
	}
	return sent, len(recipients)
}

func listOrEmpty(title string, items []string) string {
	if len(items) == 0 {
		return title + ": none registered."
	}
	return fmt.Sprintf("%s (%d):\n%s", title, len(items), strings.Join(items, "\n"))
}
