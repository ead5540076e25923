package web

import (
	"fmt"
	"net/http"
	"sort"
	"time"

	"nxttask/internal/apperr"
	"nxttask/internal/model"
	"nxttask/internal/notice"
)

type baseVM struct {
	Title     string
	Nav       string
	UserName  string
	Initials  string
	Email     string
	IsManager bool
	Notices   []notice.Notice
}

func (s *Server) base(c *browserClient, title, nav string) baseVM {
	snap := c.session.Snapshot()
	vm := baseVM{
		Title:     title,
		Nav:       nav,
		UserName:  snap.DisplayName(),
		Initials:  initials(snap.DisplayName()),
		IsManager: snap.Role() == model.RoleManager,
		Notices:   c.takeNotices(),
	}
	if snap.User != nil {
		vm.Email = snap.User.Email
	}
	return vm
}

type metricVM struct {
	Title string
	Value int
	Hint  string
}

type dashboardVM struct {
	Base     baseVM
	Greeting string
	Metrics  []metricVM
	Recent   []taskRowVM
	Upcoming []taskRowVM
	Progress []productivityStat
	Done     int
}

const dashboardRecent = 5

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request, c *browserClient) {
	c.ensureLoaded(r.Context())
	today := model.Today(s.cfg.Now())
	all := c.tasks.Tasks()

	var completed, overdue, high int
	var upcoming []model.Task
	for _, t := range all {
		switch {
		case t.Completed:
			completed++
		case t.Overdue(today):
			overdue++
		default:
			upcoming = append(upcoming, t)
		}
		if !t.Completed && t.Priority == model.PriorityHigh {
			high++
		}
	}
	sort.SliceStable(upcoming, func(i, j int) bool { return upcoming[i].DueDate < upcoming[j].DueDate })

	vm := dashboardVM{
		Base:     s.base(c, "Dashboard", "dashboard"),
		Progress: productivityStats,
		Metrics: []metricVM{
			{Title: "Total Tasks", Value: len(all), Hint: "in your workspace"},
			{Title: "Completed", Value: completed, Hint: "marked as done"},
			{Title: "Overdue", Value: overdue, Hint: "past their due date"},
			{Title: "High Priority", Value: high, Hint: "open and urgent"},
		},
	}
	vm.Greeting = "Welcome back, " + vm.Base.UserName
	if len(all) > 0 {
		vm.Done = completed * 100 / len(all)
	}
	for i, t := range all {
		if i == dashboardRecent {
			break
		}
		vm.Recent = append(vm.Recent, taskRow(t, today))
	}
	for i, t := range upcoming {
		if i == dashboardRecent {
			break
		}
		vm.Upcoming = append(vm.Upcoming, taskRow(t, today))
	}
	s.writeHTMLTemplate(w, "dashboard.html", vm)
}

type calendarDayVM struct {
	Date    string
	Day     int
	InMonth bool
	Today   bool
	Tasks   []taskRowVM
}

type calendarVM struct {
	Base      baseVM
	Month     string
	Weekdays  []string
	Weeks     [][]calendarDayVM
	PrevURL   string
	NextURL   string
	TodayURL  string
	Scheduled int
}

const monthLayout = "2006-01"

func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request, c *browserClient) {
	c.ensureLoaded(r.Context())
	now := s.cfg.Now()
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	if m := r.URL.Query().Get("month"); m != "" {
		if t, err := time.ParseInLocation(monthLayout, m, now.Location()); err == nil {
			first = t
		}
	}

	byDate := map[string][]model.Task{}
	for _, t := range c.tasks.Tasks() {
		if t.DueDate != "" {
			byDate[t.DueDate] = append(byDate[t.DueDate], t)
		}
	}
	weeks, scheduled := calendarWeeks(first, model.Today(now), byDate)

	s.writeHTMLTemplate(w, "calendar.html", calendarVM{
		Base:      s.base(c, "Calendar", "calendar"),
		Month:     first.Format("January 2006"),
		Weekdays:  []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"},
		Weeks:     weeks,
		PrevURL:   "/calendar?month=" + first.AddDate(0, -1, 0).Format(monthLayout),
		NextURL:   "/calendar?month=" + first.AddDate(0, 1, 0).Format(monthLayout),
		TodayURL:  "/calendar",
		Scheduled: scheduled,
	})
}

// calendarWeeks lays out the month starting at first as Sunday-first weeks,
// padded with the adjacent months' days.
func calendarWeeks(first time.Time, today string, byDate map[string][]model.Task) ([][]calendarDayVM, int) {
	start := first.AddDate(0, 0, -int(first.Weekday()))
	last := first.AddDate(0, 1, -1)
	end := last.AddDate(0, 0, 6-int(last.Weekday()))

	var weeks [][]calendarDayVM
	var week []calendarDayVM
	scheduled := 0
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		date := d.Format(model.DateLayout)
		day := calendarDayVM{Date: date, Day: d.Day(), InMonth: d.Month() == first.Month(), Today: date == today}
		for _, t := range byDate[date] {
			day.Tasks = append(day.Tasks, taskRow(t, today))
		}
		if day.InMonth {
			scheduled += len(day.Tasks)
		}
		week = append(week, day)
		if len(week) == 7 {
			weeks = append(weeks, week)
			week = nil
		}
	}
	return weeks, scheduled
}

type dailyPlanVM struct {
	Base       baseVM
	Date       string
	Schedule   []scheduleBlock
	Stats      []productivityStat
	Priorities []string
	Suggestion string
}

const topPriorities = 3

func (s *Server) handleDailyPlan(w http.ResponseWriter, r *http.Request, c *browserClient) {
	c.ensureLoaded(r.Context())
	var prios []string
	for _, t := range c.tasks.Tasks() {
		if !t.Completed && t.Priority == model.PriorityHigh {
			prios = append(prios, t.Title)
			if len(prios) == topPriorities {
				break
			}
		}
	}
	if len(prios) == 0 {
		prios = samplePriorities
	}
	s.writeHTMLTemplate(w, "daily_plan.html", dailyPlanVM{
		Base:       s.base(c, "Daily Plan", "daily-plan"),
		Date:       s.cfg.Now().Format("January 2, 2006"),
		Schedule:   dailySchedule,
		Stats:      productivityStats,
		Priorities: prios,
		Suggestion: scheduleSuggestion,
	})
}

type messagesVM struct {
	Base      baseVM
	Channels  []chatChannel
	Active    chatChannel
	History   []chatMessage
	SocketURL string
}

func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request, c *browserClient) {
	active, ok := findChannel(r.URL.Query().Get("channel"))
	if !ok {
		active = chatChannels[0]
	}
	s.writeHTMLTemplate(w, "messages.html", messagesVM{
		Base:      s.base(c, "Messages", "messages"),
		Channels:  chatChannels,
		Active:    active,
		History:   s.chat.History(active.ID),
		SocketURL: "/messages/ws?channel=" + active.ID,
	})
}

type teamVM struct {
	Base    baseVM
	Members []teamMember
}

func (s *Server) handleTeam(w http.ResponseWriter, r *http.Request, c *browserClient) {
	s.writeHTMLTemplate(w, "team.html", teamVM{Base: s.base(c, "Team", "team"), Members: teamRoster})
}

type profileRowVM struct {
	ID    string
	Name  string
	Email string
	Role  model.Role
	Self  bool
}

type teamManageVM struct {
	Base     baseVM
	Profiles []profileRowVM
	Roles    []model.Role
	Error    string
}

func (s *Server) handleTeamManage(w http.ResponseWriter, r *http.Request, c *browserClient) {
	vm := teamManageVM{Base: s.base(c, "Manage Team", "team"), Roles: []model.Role{model.RoleManager, model.RoleTeamMember}}
	profiles, err := c.repo.Profiles(r.Context())
	if err != nil {
		s.l.Error("listing profiles", "error", err)
		vm.Error = "Failed to load team: " + apperr.Message(err)
	}
	self := ""
	if snap := c.session.Snapshot(); snap.User != nil {
		self = snap.User.ID
	}
	for _, p := range profiles {
		vm.Profiles = append(vm.Profiles, profileRowVM{ID: p.ID, Name: p.DisplayName(), Email: p.Email, Role: p.Role, Self: p.ID == self})
	}
	s.writeHTMLTemplate(w, "team_manage.html", vm)
}

func (s *Server) handleTeamRolePost(w http.ResponseWriter, r *http.Request, c *browserClient) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	role, ok := model.ParseRole(r.PostForm.Get("role"))
	if !ok {
		c.notices.Notify(notice.KindError, "Role must be manager or team_member")
		http.Redirect(w, r, "/team/manage", http.StatusSeeOther)
		return
	}
	id := r.PathValue("id")
	p, err := c.repo.SetRole(r.Context(), id, role)
	if err != nil {
		s.l.Error("changing role", "userId", id, "role", role, "error", err)
		c.notices.Notify(notice.KindError, "Failed to update role: "+apperr.Message(err))
		http.Redirect(w, r, "/team/manage", http.StatusSeeOther)
		return
	}
	c.notices.Notify(notice.KindSuccess, fmt.Sprintf("%s is now a %s", p.DisplayName(), roleLabel(role)))
	if snap := c.session.Snapshot(); snap.User != nil && snap.User.ID == id {
		// Demoting yourself takes effect immediately.
		c.session.Refresh(r.Context())
	}
	http.Redirect(w, r, "/team/manage", http.StatusSeeOther)
}

func roleLabel(r model.Role) string {
	if r == model.RoleManager {
		return "manager"
	}
	return "team member"
}
