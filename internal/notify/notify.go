package notify

import "github.com/gen2brain/beeep"

// Notify shows a desktop notification.
func Notify(title, message string) error {
	return beeep.Notify(title, message, "")
}
