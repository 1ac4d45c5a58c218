// Package trello implements the board.Provider interface against the
// Trello REST API. Auth is key/token query parameters; every write is one
// HTTP call.
package trello

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fentz26/taskscribe/internal/board"
	"github.com/fentz26/taskscribe/internal/models"
)

// DefaultTimeout bounds each Trello API call.
const DefaultTimeout = 15 * time.Second

// labelPalette holds Trello's named label colors in preference order.
var labelPalette = []string{
	"green", "yellow", "orange", "red", "purple",
	"blue", "sky", "lime", "pink", "black",
}

// Config carries the credentials and board identity.
type Config struct {
	APIKey  string
	Token   string
	BoardID string
	// BaseURL overrides the API endpoint, for tests.
	BaseURL string
}

// Client is a Trello-backed board provider.
type Client struct {
	cfg  Config
	http *http.Client
}

// New creates a Trello client.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.trello.com/1"
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: DefaultTimeout},
	}
}

// Name implements board.Provider.
func (c *Client) Name() string { return "trello" }

func (c *Client) auth(params url.Values) url.Values {
	if params == nil {
		params = url.Values{}
	}
	params.Set("key", c.cfg.APIKey)
	params.Set("token", c.cfg.Token)
	return params
}

// do performs one API call and returns the response body. Non-2xx statuses
// become errors carrying the raw provider message.
func (c *Client) do(ctx context.Context, method, path string, params url.Values) ([]byte, error) {
	u := c.cfg.BaseURL + path + "?" + c.auth(params).Encode()
	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("trello request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("trello error (%d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out interface{}) error {
	body, err := c.do(ctx, http.MethodGet, path, params)
	if err != nil {
		return err
	}
	return decodeJSON(body, out)
}

// --- wire shapes ---

type trelloList struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type trelloLabel struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

type trelloMember struct {
	ID       string `json:"id"`
	FullName string `json:"fullName"`
	Username string `json:"username"`
}

type trelloCard struct {
	ID      string         `json:"id"`
	Name    string         `json:"name"`
	Desc    string         `json:"desc"`
	Due     string         `json:"due"`
	IDList  string         `json:"idList"`
	URL     string         `json:"url"`
	Labels  []trelloLabel  `json:"labels"`
	Members []trelloMember `json:"members"`
}

type trelloCheckItem struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	State string `json:"state"` // "complete" | "incomplete"
}

type trelloChecklist struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	IDCard     string            `json:"idCard"`
	Pos        float64           `json:"pos"`
	CheckItems []trelloCheckItem `json:"checkItems"`
}

// Snapshot implements board.Provider. Five reads: lists, cards (with
// members and labels), checklists (with items), board members, labels.
func (c *Client) Snapshot(ctx context.Context) (*models.BoardSnapshot, error) {
	boardPath := "/boards/" + c.cfg.BoardID

	var lists []trelloList
	if err := c.get(ctx, boardPath+"/lists", nil, &lists); err != nil {
		return nil, fmt.Errorf("fetch lists: %w", err)
	}
	listName := make(map[string]string, len(lists))
	statuses := make([]string, 0, len(lists))
	for _, l := range lists {
		listName[l.ID] = l.Name
		statuses = append(statuses, l.Name)
	}

	params := url.Values{}
	params.Set("members", "true")
	params.Set("member_fields", "fullName,username")
	params.Set("labels", "true")
	var cards []trelloCard
	if err := c.get(ctx, boardPath+"/cards", params, &cards); err != nil {
		return nil, fmt.Errorf("fetch cards: %w", err)
	}

	clParams := url.Values{}
	clParams.Set("checkItems", "all")
	var checklists []trelloChecklist
	if err := c.get(ctx, boardPath+"/checklists", clParams, &checklists); err != nil {
		return nil, fmt.Errorf("fetch checklists: %w", err)
	}
	byCard := make(map[string][]models.Checklist)
	for _, cl := range checklists {
		items := make([]models.ChecklistItem, 0, len(cl.CheckItems))
		for _, it := range cl.CheckItems {
			state := models.ItemIncomplete
			if it.State == "complete" {
				state = models.ItemComplete
			}
			items = append(items, models.ChecklistItem{ID: it.ID, Name: it.Name, State: state})
		}
		byCard[cl.IDCard] = append(byCard[cl.IDCard], models.Checklist{ID: cl.ID, Name: cl.Name, Items: items})
	}

	var boardMembers []trelloMember
	if err := c.get(ctx, boardPath+"/members", nil, &boardMembers); err != nil {
		return nil, fmt.Errorf("fetch members: %w", err)
	}

	var labels []trelloLabel
	if err := c.get(ctx, boardPath+"/labels", nil, &labels); err != nil {
		return nil, fmt.Errorf("fetch labels: %w", err)
	}

	snap := &models.BoardSnapshot{
		Statuses:  statuses,
		FetchedAt: time.Now(),
	}
	for _, l := range labels {
		if l.Name != "" {
			snap.Labels = append(snap.Labels, l.Name)
		}
	}
	for _, m := range boardMembers {
		snap.Members = append(snap.Members, models.Member{
			ID:          m.ID,
			DisplayName: m.FullName,
			Username:    m.Username,
		})
	}
	for _, card := range cards {
		t := models.Task{
			ID:         card.ID,
			Name:       card.Name,
			Status:     listName[card.IDList],
			URL:        card.URL,
			Checklists: byCard[card.ID],
		}
		if card.Due != "" {
			t.Deadline = strings.SplitN(card.Due, "T", 2)[0]
		}
		if len(card.Labels) > 0 {
			t.Label = card.Labels[0].Name
		}
		for _, m := range card.Members {
			t.Members = append(t.Members, models.Member{
				ID:          m.ID,
				DisplayName: m.FullName,
				Username:    m.Username,
			})
		}
		snap.Tasks = append(snap.Tasks, t)
	}
	return snap, nil
}

// listIDForStatus finds the list whose name matches the status, walking the
// shared alias chain.
func (c *Client) listIDForStatus(ctx context.Context, status string) (string, error) {
	var lists []trelloList
	if err := c.get(ctx, "/boards/"+c.cfg.BoardID+"/lists", nil, &lists); err != nil {
		return "", err
	}
	names := make([]string, len(lists))
	for i, l := range lists {
		names[i] = l.Name
	}
	resolved, err := board.ResolveStatus(names, status)
	if err != nil {
		return "", err
	}
	for _, l := range lists {
		if l.Name == resolved {
			return l.ID, nil
		}
	}
	return "", fmt.Errorf("list %q disappeared between fetch and use", resolved)
}

// CreateTask implements board.Provider. New cards go to the top of their
// list.
func (c *Client) CreateTask(ctx context.Context, req board.CreateTaskRequest) (string, error) {
	listID, err := c.listIDForStatus(ctx, req.Status)
	if err != nil {
		return "", err
	}
	params := url.Values{}
	params.Set("name", req.Name)
	params.Set("idList", listID)
	params.Set("pos", "top")
	if req.Deadline != "" {
		params.Set("due", req.Deadline+"T12:00:00.000Z")
	}
	if req.Description != "" {
		params.Set("desc", req.Description)
	}
	body, err := c.do(ctx, http.MethodPost, "/cards", params)
	if err != nil {
		return "", err
	}
	var card trelloCard
	if err := decodeJSON(body, &card); err != nil {
		return "", err
	}
	return card.ID, nil
}

// UpdateTask implements board.Provider.
func (c *Client) UpdateTask(ctx context.Context, taskID string, patch board.TaskPatch) error {
	params := url.Values{}
	if patch.Name != "" {
		params.Set("name", patch.Name)
	}
	if patch.Status != "" {
		listID, err := c.listIDForStatus(ctx, patch.Status)
		if err != nil {
			return err
		}
		params.Set("idList", listID)
	}
	if patch.Deadline != "" {
		params.Set("due", patch.Deadline+"T12:00:00.000Z")
	}
	if patch.Description != "" {
		params.Set("desc", patch.Description)
	}
	if len(params) == 0 {
		return nil
	}
	_, err := c.do(ctx, http.MethodPut, "/cards/"+taskID, params)
	return err
}

// DeleteTask implements board.Provider. Trello deletes outright.
func (c *Client) DeleteTask(ctx context.Context, taskID string) error {
	_, err := c.do(ctx, http.MethodDelete, "/cards/"+taskID, nil)
	return err
}

// AddComment implements board.Provider.
func (c *Client) AddComment(ctx context.Context, taskID, text string) error {
	params := url.Values{}
	params.Set("text", text)
	_, err := c.do(ctx, http.MethodPost, "/cards/"+taskID+"/actions/comments", params)
	return err
}

// labelID returns the ID of the named label, creating it with the first
// unused palette color when absent.
func (c *Client) labelID(ctx context.Context, name string) (string, error) {
	var labels []trelloLabel
	if err := c.get(ctx, "/boards/"+c.cfg.BoardID+"/labels", nil, &labels); err != nil {
		return "", err
	}
	used := make([]string, 0, len(labels))
	for _, l := range labels {
		if strings.EqualFold(l.Name, name) {
			return l.ID, nil
		}
		used = append(used, l.Color)
	}
	params := url.Values{}
	params.Set("name", name)
	params.Set("color", board.FirstUnusedColor(labelPalette, used, "blue"))
	params.Set("idBoard", c.cfg.BoardID)
	body, err := c.do(ctx, http.MethodPost, "/labels", params)
	if err != nil {
		return "", err
	}
	var created trelloLabel
	if err := decodeJSON(body, &created); err != nil {
		return "", err
	}
	return created.ID, nil
}

// CreateLabel implements board.Provider.
func (c *Client) CreateLabel(ctx context.Context, name string) error {
	_, err := c.labelID(ctx, name)
	return err
}

// AttachLabel implements board.Provider, creating the label on demand.
func (c *Client) AttachLabel(ctx context.Context, taskID, name string) error {
	id, err := c.labelID(ctx, name)
	if err != nil {
		return err
	}
	params := url.Values{}
	params.Set("value", id)
	_, err = c.do(ctx, http.MethodPost, "/cards/"+taskID+"/idLabels", params)
	return err
}

// AddMember implements board.Provider.
func (c *Client) AddMember(ctx context.Context, taskID, memberID string) error {
	params := url.Values{}
	params.Set("value", memberID)
	_, err := c.do(ctx, http.MethodPost, "/cards/"+taskID+"/idMembers", params)
	return err
}

// RemoveMember implements board.Provider.
func (c *Client) RemoveMember(ctx context.Context, taskID, memberID string) error {
	_, err := c.do(ctx, http.MethodDelete, "/cards/"+taskID+"/idMembers/"+memberID, nil)
	return err
}

// CreateChecklist implements board.Provider.
func (c *Client) CreateChecklist(ctx context.Context, taskID, name string) (string, error) {
	params := url.Values{}
	params.Set("idCard", taskID)
	params.Set("name", name)
	body, err := c.do(ctx, http.MethodPost, "/checklists", params)
	if err != nil {
		return "", err
	}
	var cl trelloChecklist
	if err := decodeJSON(body, &cl); err != nil {
		return "", err
	}
	return cl.ID, nil
}

// AddChecklistItem implements board.Provider.
func (c *Client) AddChecklistItem(ctx context.Context, taskID, checklistID, name string, state models.ItemState) (string, error) {
	params := url.Values{}
	params.Set("name", name)
	if state == models.ItemComplete {
		params.Set("checked", "true")
	}
	body, err := c.do(ctx, http.MethodPost, "/checklists/"+checklistID+"/checkItems", params)
	if err != nil {
		return "", err
	}
	var item trelloCheckItem
	if err := decodeJSON(body, &item); err != nil {
		return "", err
	}
	return item.ID, nil
}

// SetChecklistItemState implements board.Provider. Trello scopes check-item
// state updates under the card, not the checklist.
func (c *Client) SetChecklistItemState(ctx context.Context, taskID, checklistID, itemID string, state models.ItemState) error {
	params := url.Values{}
	params.Set("state", string(state))
	_, err := c.do(ctx, http.MethodPut, "/cards/"+taskID+"/checkItem/"+itemID, params)
	return err
}

// DeleteChecklistItem implements board.Provider.
func (c *Client) DeleteChecklistItem(ctx context.Context, taskID, checklistID, itemID string) error {
	_, err := c.do(ctx, http.MethodDelete, "/checklists/"+checklistID+"/checkItems/"+itemID, nil)
	return err
}

// DeleteChecklist implements board.Provider.
func (c *Client) DeleteChecklist(ctx context.Context, taskID, checklistID string) error {
	_, err := c.do(ctx, http.MethodDelete, "/checklists/"+checklistID, nil)
	return err
}
