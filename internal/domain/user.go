package domain

// User is a registered account. PasswordHash holds an encoded argon2id digest.
type User struct {
	Username     string
	DisplayName  string
	Email        string
	Image        string
	PasswordHash string
}

// AsAttendee converts the user into a roster entry.
func (u User) AsAttendee(isHost bool) Attendee {
	return Attendee{
		Username:    u.Username,
		DisplayName: u.DisplayName,
		Image:       u.Image,
		IsHost:      isHost,
	}
}
