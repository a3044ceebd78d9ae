// Package routes defines HTTP route constants for the application.
package routes

const (
	// Feed API
	Announcements       = "/api/announcements"
	AnnouncementsCreate = "POST /api/announcements"
	AnnouncementsList   = "GET /api/announcements"
	AnnouncementsDelete = "DELETE /api/announcements/{id}"

	// Auth
	Login  = "POST /api/login"
	Logout = "POST /api/logout"

	// Stored uploads (public, no access control)
	Uploads = "/uploads/"

	// SSE feed updates
	Events = "/events"

	Robots = "/robots.txt"
)
