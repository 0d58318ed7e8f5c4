// Package tui is the terminal presentation layer. It is a BubbleTea
// program that translates key presses into session calls and renders the
// results; all game rules live behind the session.
// https://github.com/charmbracelet/bubbletea
package tui

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/levelkit/textquest/internal/save"
	"github.com/levelkit/textquest/internal/session"
	"github.com/levelkit/textquest/pkg/content"
)

var (
	storyPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(1).
			PaddingLeft(3).
			PaddingRight(0)

	metaPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(0).
			PaddingLeft(0).
			PaddingRight(2)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")). // pink
			Bold(true)

	roomTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")). // purple
			Bold(true)

	bodyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")) // green

	optionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")) // teal

	lockedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	battleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // yellow

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	separatorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2).
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("255"))

	modalTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			Align(lipgloss.Center)

	modalItemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	modalSelectedItemStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("0")).
				Background(lipgloss.Color("205")).
				Bold(true)
)

// UI is the BubbleTea model that runs the game screen.
type UI struct {
	session *session.Session
	reg     *content.Registry
	store   save.Store
	slot    string
	logger  *slog.Logger

	storyViewport viewport.Model
	metaViewport  viewport.Model
	ready         bool
	width         int
	height        int

	// transcript holds pre-styled blocks; reflow happens on resize.
	transcript []string
	status     string

	showQuitModal bool

	// Inventory modal state
	showInventory bool
	invRows       []inventoryRow
	selectedItem  int
}

type inventoryRow struct {
	id    string
	name  string
	count int
}

type savedMsg struct {
	err error
}

// New builds the UI over a started session. The first room is written to
// the transcript immediately.
func New(sess *session.Session, reg *content.Registry, store save.Store, slot string, logger *slog.Logger) UI {
	storyVp := viewport.New(50, 20)
	storyVp.MouseWheelEnabled = true
	metaVp := viewport.New(20, 20)

	ui := UI{
		session:       sess,
		reg:           reg,
		store:         store,
		slot:          slot,
		logger:        logger,
		storyViewport: storyVp,
		metaViewport:  metaVp,
	}
	ui.appendRoom()
	return ui
}

// Run starts the program in the alternate screen and blocks until quit.
func Run(ui UI) error {
	p := tea.NewProgram(ui, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func (m UI) Init() tea.Cmd {
	return nil
}

func (m UI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.showQuitModal {
		return m.updateQuitModal(msg)
	}
	if m.showInventory {
		return m.updateInventoryModal(msg)
	}

	var vpCmd, mvCmd tea.Cmd

	switch msg := msg.(type) {
	case tea.MouseMsg:
		m.storyViewport, vpCmd = m.storyViewport.Update(msg)
		return m, vpCmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		m.ready = true
		m.writeStoryContent()
		m.metaViewport.SetContent(m.writeMetadata())

	case savedMsg:
		if msg.err != nil {
			m.status = errorStyle.Render("Save failed: " + msg.err.Error())
			m.logger.Error("save failed", "slot", m.slot, "error", msg.err)
		} else {
			m.status = promptStyle.Render("Game saved.")
		}
		m.metaViewport.SetContent(m.writeMetadata())

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	m.storyViewport, vpCmd = m.storyViewport.Update(msg)
	m.metaViewport, mvCmd = m.metaViewport.Update(msg)
	return m, tea.Batch(vpCmd, mvCmd)
}

func (m UI) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		m.showQuitModal = true
		return m, nil
	}

	switch key := msg.String(); key {
	case "q":
		m.showQuitModal = true
		return m, nil

	case "s":
		return m, m.saveGame()

	case "i":
		if m.session.InBattle() {
			m.status = battleStyle.Render("No rummaging mid-fight.")
			return m, nil
		}
		m.openInventory()
		return m, nil

	case "f":
		if !m.session.InBattle() {
			return m, nil
		}
		res, err := m.session.Flee()
		m.applyResult(res, err)
		return m, nil

	case "1", "2", "3", "4", "5", "6", "7", "8", "9":
		index := int(key[0] - '1')
		var (
			res *session.Result
			err error
		)
		if m.session.InBattle() {
			res, err = m.session.BattleAct(index)
		} else {
			res, err = m.session.Choose(index)
		}
		m.applyResult(res, err)
		return m, nil
	}

	return m, nil
}

// applyResult folds a session result into the transcript.
func (m *UI) applyResult(res *session.Result, err error) {
	m.status = ""
	if err != nil {
		switch err.(type) {
		case *session.OptionOutOfRangeError:
			// Stray number key; nothing to report.
		default:
			m.status = errorStyle.Render(err.Error())
		}
		m.metaViewport.SetContent(m.writeMetadata())
		return
	}

	switch res.Kind {
	case session.ResultMoved:
		m.appendRoom()

	case session.ResultStayed:
		m.appendRoom()

	case session.ResultBlocked:
		hint := res.Hint
		if hint == "" {
			hint = "Something is missing."
		}
		m.append(lockedStyle.Render(hint))

	case session.ResultBattleStarted:
		m.append(battleStyle.Render(res.Text))
		m.appendBattle(res.Battle)

	case session.ResultBattleTurn:
		m.appendBattle(res.Battle)

	case session.ResultVictory:
		m.appendOutcomeLog(res)
		text := res.Text
		if text == "" {
			text = "Victory!"
		}
		m.append(battleStyle.Render(text))
		if res.Outcome != nil && res.Outcome.XPGain > 0 {
			m.append(promptStyle.Render(fmt.Sprintf("You gain %d XP.", res.Outcome.XPGain)))
		}
		if res.LevelsGained > 0 {
			m.append(titleStyle.Render(fmt.Sprintf("Level up! You are now level %d.", m.session.Snapshot().Stats.Level)))
		}
		m.appendRoom()

	case session.ResultDefeat:
		m.appendOutcomeLog(res)
		text := res.Text
		if text == "" {
			text = "You fall..."
		}
		m.append(errorStyle.Render(text))
		m.appendRoom()

	case session.ResultFled:
		m.appendOutcomeLog(res)
		m.append(battleStyle.Render("You escape the fight."))
		m.appendRoom()

	case session.ResultItemUsed:
		m.append(promptStyle.Render(res.Text))
	}

	m.writeStoryContent()
	m.metaViewport.SetContent(m.writeMetadata())
}

func (m *UI) appendOutcomeLog(res *session.Result) {
	if res.Outcome == nil {
		return
	}
	// The last log entries are the final blows; the battle view that would
	// have shown them is never rendered once the battle resolves.
	log := res.Outcome.Log
	if len(log) > 2 {
		log = log[len(log)-2:]
	}
	for _, entry := range log {
		m.append(bodyStyle.Render(entry.Text))
	}
}

func (m *UI) append(block string) {
	m.transcript = append(m.transcript, block)
}

// appendRoom writes the current room's title, body and options.
func (m *UI) appendRoom() {
	room := m.session.Room()

	var b strings.Builder
	b.WriteString(roomTitleStyle.Render(room.Title) + "\n\n")
	b.WriteString(bodyStyle.Render(room.Body) + "\n")
	for i, opt := range m.session.Options() {
		line := fmt.Sprintf("%d. %s", i+1, opt.Label)
		if opt.Available {
			b.WriteString("\n" + optionStyle.Render(line))
		} else {
			b.WriteString("\n" + lockedStyle.Render(line+" (locked)"))
		}
	}
	m.append(b.String())
}

// appendBattle writes the enemy bar, the latest log lines and the action menu.
func (m *UI) appendBattle(view *session.BattleView) {
	if view == nil {
		return
	}
	var b strings.Builder
	b.WriteString(battleStyle.Render(fmt.Sprintf("%s: %s  [%d/%d HP]",
		view.Title, view.EnemyName, view.EnemyHealth, view.EnemyMax)) + "\n")

	log := view.Log
	if len(log) > 4 {
		log = log[len(log)-4:]
	}
	for _, entry := range log {
		b.WriteString("\n" + bodyStyle.Render(entry.Text))
	}

	b.WriteString("\n")
	for i, action := range view.Actions {
		label := action.Label
		if action.ManaCost > 0 {
			label = fmt.Sprintf("%s (%d mana)", label, action.ManaCost)
		}
		line := fmt.Sprintf("%d. %s", i+1, label)
		if action.Available {
			b.WriteString("\n" + optionStyle.Render(line))
		} else {
			b.WriteString("\n" + lockedStyle.Render(fmt.Sprintf("%s (%s)", line, action.Reason)))
		}
	}
	if view.AllowFlee {
		b.WriteString("\n" + lockedStyle.Render("f. Flee"))
	}
	m.append(b.String())
}

func (m *UI) resize() {
	storyWidth := int(float64(m.width)*0.75) - 4
	metaWidth := m.width - storyWidth - 6

	m.storyViewport.Width = storyWidth - 2
	m.storyViewport.Height = m.height - 5
	m.metaViewport.Width = metaWidth - 2
	m.metaViewport.Height = m.height - 4
}

func (m *UI) writeStoryContent() {
	storyWidth := m.storyViewport.Width - 6
	if storyWidth < 20 {
		storyWidth = 20
	}

	var content strings.Builder
	content.WriteString(titleStyle.Render("TEXTQUEST") + "\n\n")
	content.WriteString(separatorStyle.Render(strings.Repeat("─", storyWidth-6)) + "\n\n")
	for _, block := range m.transcript {
		content.WriteString(wordwrap.String(block, storyWidth) + "\n\n")
	}
	m.storyViewport.SetContent(content.String())
	m.storyViewport.GotoBottom()
}

func (m *UI) writeMetadata() string {
	gs := m.session.Snapshot()

	var content strings.Builder
	content.WriteString(titleStyle.Render("ADVENTURER") + "\n\n")
	content.WriteString(fmt.Sprintf("Level %d  (%d XP)\n", gs.Stats.Level, gs.Stats.XP))
	content.WriteString(fmt.Sprintf("HP   %d/%d\n", gs.Stats.Health, gs.Stats.MaxHealth))
	content.WriteString(fmt.Sprintf("Mana %d/%d\n", gs.Stats.Mana, gs.Stats.MaxMana))
	content.WriteString(fmt.Sprintf("Atk %d  Def %d\n\n", gs.Stats.Attack, gs.Stats.Defense))

	if gs.EquippedWeaponID != "" {
		name := gs.EquippedWeaponID
		if item, err := m.reg.Item(gs.EquippedWeaponID); err == nil {
			name = item.Name
		}
		content.WriteString("Equipped:\n" + name + "\n\n")
	}

	content.WriteString("Inventory:\n")
	if len(gs.Inventory) == 0 {
		content.WriteString("Empty\n")
	} else {
		for _, row := range m.inventoryRows(gs.Inventory) {
			content.WriteString(fmt.Sprintf("• %s x%d\n", row.name, row.count))
		}
	}

	content.WriteString("\n")
	content.WriteString("Commands:\n")
	content.WriteString("• 1-9: Choose\n")
	content.WriteString("• i: Items\n")
	content.WriteString("• s: Save\n")
	content.WriteString("• q: Quit\n")

	if m.status != "" {
		content.WriteString("\n" + m.status + "\n")
	}

	return content.String()
}

func (m *UI) inventoryRows(inv map[string]int) []inventoryRow {
	rows := make([]inventoryRow, 0, len(inv))
	for id, count := range inv {
		name := id
		if item, err := m.reg.Item(id); err == nil {
			name = item.Name
		}
		rows = append(rows, inventoryRow{id: id, name: name, count: count})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].name < rows[j].name })
	return rows
}

func (m *UI) openInventory() {
	m.invRows = m.inventoryRows(m.session.Snapshot().Inventory)
	m.selectedItem = 0
	m.showInventory = true
}

func (m UI) updateInventoryModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.showInventory = false
			return m, nil
		case tea.KeyUp:
			if m.selectedItem > 0 {
				m.selectedItem--
			}
		case tea.KeyDown:
			if m.selectedItem < len(m.invRows)-1 {
				m.selectedItem++
			}
		case tea.KeyEnter:
			if len(m.invRows) == 0 {
				m.showInventory = false
				return m, nil
			}
			row := m.invRows[m.selectedItem]
			m.showInventory = false
			res, err := m.session.ApplyItem(row.id)
			m.applyResult(res, err)
			return m, nil
		default:
			if msg.String() == "i" || msg.String() == "q" {
				m.showInventory = false
				return m, nil
			}
		}
	}
	return m, nil
}

func (m UI) updateQuitModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEnter:
			return m, tea.Quit
		default:
			switch msg.String() {
			case "y", "Y":
				return m, tea.Quit
			case "n", "N":
				m.showQuitModal = false
				return m, nil
			}
		}
	}
	return m, nil
}

func (m UI) saveGame() tea.Cmd {
	gs := m.session.Snapshot()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return savedMsg{err: m.store.Save(ctx, m.slot, gs)}
	}
}

func (m UI) renderQuitModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder
	content.WriteString(modalTitleStyle.Render("Quit Game?"))
	content.WriteString("\n\n")
	content.WriteString("Your progress is saved automatically on quit.")
	content.WriteString("\n\n")
	content.WriteString(promptStyle.Render("Press Y to quit, N to continue"))

	modal := modalStyle.Width(50).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m UI) renderInventoryModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder
	content.WriteString(modalTitleStyle.Render("Inventory"))
	content.WriteString("\n\n")

	if len(m.invRows) == 0 {
		content.WriteString(modalItemStyle.Render("You carry nothing."))
	} else {
		for i, row := range m.invRows {
			line := fmt.Sprintf("%s x%d", row.name, row.count)
			if i == m.selectedItem {
				content.WriteString(modalSelectedItemStyle.Render("▶ " + line))
			} else {
				content.WriteString(modalItemStyle.Render("  " + line))
			}
			content.WriteString("\n")
		}
	}

	content.WriteString("\n")
	content.WriteString(promptStyle.Render("Use ↑/↓ to navigate, Enter to use, Esc to close"))

	modal := modalStyle.Width(50).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m UI) View() string {
	if m.showQuitModal {
		return m.renderQuitModal()
	}
	if m.showInventory {
		return m.renderInventoryModal()
	}
	if !m.ready {
		return "\n  Initializing..."
	}

	storyWidth := int(float64(m.width)*0.75) - 4
	metaWidth := m.width - storyWidth - 6

	storyPanel := storyPanelStyle.Width(storyWidth).Height(m.height - 3).Render(
		m.storyViewport.View(),
	)
	metaPanel := metaPanelStyle.Width(metaWidth).Height(m.height - 2).Render(
		m.metaViewport.View(),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, storyPanel, metaPanel)
}
