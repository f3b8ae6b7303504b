package users

import (
	"time"

	"github.com/pictor-board/pictor/internal/access"
)

// User is a registered account. Email state is split in two: at most one of
// ConfirmedEmail/UnconfirmedEmail holds a pending value per registration.
type User struct {
	ID               int64
	Name             string
	PasswordHash     string
	Rank             access.Rank
	ConfirmedEmail   string
	UnconfirmedEmail string
	EmailToken       string
	CreatedAt        time.Time
}
