package web

// Static showcase content for the planning, messaging and team pages.

type scheduleBlock struct {
	Time        string
	Title       string
	Description string
	Kind        string // focus|meeting|admin|break|client|review
}

var dailySchedule = []scheduleBlock{
	{"9:00 AM", "Deep Work: Project Planning", "Focus on planning upcoming project milestones", "focus"},
	{"10:00 AM", "Team Meeting", "Weekly status update with the development team", "meeting"},
	{"11:00 AM", "Email & Communication", "Respond to pending emails and messages", "admin"},
	{"12:00 PM", "Lunch Break", "Time to recharge", "break"},
	{"1:00 PM", "Deep Work: Create PRD", "Work on the product requirements document", "focus"},
	{"2:00 PM", "Client Call", "Review project progress with the client", "client"},
	{"3:00 PM", "Deep Work: Presentation Prep", "Prepare slides for stakeholder meeting", "focus"},
	{"4:00 PM", "Project Review", "End of week project review with stakeholders", "review"},
}

type productivityStat struct {
	Label   string
	Amount  string
	Percent int
}

var productivityStats = []productivityStat{
	{"Deep Work", "3 hours", 60},
	{"Meetings", "3 hours", 30},
	{"Breaks", "1 hour", 10},
}

var samplePriorities = []string{
	"Create PRD for new mobile app",
	"Prepare stakeholder presentation",
	"Review team project plan",
}

const scheduleSuggestion = "You have 3 consecutive meetings in the afternoon. Consider adding short breaks between them."

type chatChannel struct {
	ID       string
	Name     string
	Initials string
	Preview  string
	Time     string
	Unread   int
}

var chatChannels = []chatChannel{
	{ID: "team-standup", Name: "Team Standup", Initials: "TS", Preview: "Alex: I'll finish the PRD by EOD", Time: "10:30 AM", Unread: 3},
	{ID: "design-team", Name: "Design Team", Initials: "DT", Preview: "Last message from conversation", Time: "9:12 AM"},
	{ID: "project-x", Name: "Project X", Initials: "PX", Preview: "Last message from conversation", Time: "8:47 AM"},
	{ID: "client-meeting-notes", Name: "Client Meeting Notes", Initials: "CMN", Preview: "Last message from conversation", Time: "Yesterday"},
	{ID: "weekly-report", Name: "Weekly Report", Initials: "WR", Preview: "Last message from conversation", Time: "Mon"},
}

func findChannel(id string) (chatChannel, bool) {
	for _, ch := range chatChannels {
		if ch.ID == id {
			return ch, true
		}
	}
	return chatChannel{}, false
}

// standupSeed is the conversation the Team Standup channel opens with.
var standupSeed = []chatMessage{
	{Author: "Sarah Johnson", Initials: "SJ", Time: "10:05 AM", Text: "Good morning team! What's everyone working on today?"},
	{Author: "Tom Parker", Initials: "TP", Time: "10:08 AM", Text: "I'm finalizing the design mockups for the new feature. Should be ready for review by lunch."},
	{Author: "Rachel Davis", Initials: "RD", Time: "10:12 AM", Text: "I'm addressing the QA feedback from yesterday. There are a few bugs that need fixing before we can ship."},
	{Author: "Michael Rodriguez", Initials: "MR", Time: "10:18 AM", Text: "Working on the backend integration for the new API. Should be done by end of day."},
	{Author: "Alex Johnson", Initials: "AJ", Time: "10:30 AM", Text: "I'm working on the PRD for the mobile app. I should have it completed by end of day. Does anyone have any input before I finalize it?"},
}

type teamMember struct {
	Name      string
	Role      string
	Initials  string
	Completed int
	Total     int
	Focus     float64
}

func (m teamMember) Percent() int {
	if m.Total == 0 {
		return 0
	}
	return m.Completed * 100 / m.Total
}

var teamRoster = []teamMember{
	{"Alex Johnson", "Team Lead", "AJ", 16, 24, 18.5},
	{"Sarah Johnson", "Product Manager", "SJ", 12, 18, 15.2},
	{"Tom Parker", "UI Designer", "TP", 8, 14, 12.5},
	{"Rachel Davis", "QA Engineer", "RD", 20, 22, 16.8},
	{"Michael Rodriguez", "Backend Developer", "MR", 14, 19, 17.3},
	{"Emily White", "Frontend Developer", "EW", 10, 15, 14.7},
}
