// Package notion implements the board.Provider interface against the
// Notion REST API. Tasks are pages in one database; the status column comes
// from the database's "Status" property, epics from its "Select" property,
// and checklists from heading + to-do blocks on each page.
package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fentz26/taskscribe/internal/board"
	"github.com/fentz26/taskscribe/internal/models"
)

// DefaultTimeout bounds each Notion API call.
const DefaultTimeout = 15 * time.Second

const apiVersion = "2022-06-28"

// selectPalette holds Notion's select-option colors in preference order.
// New epics take the first color no existing epic uses; "default" covers
// exhaustion.
var selectPalette = []string{
	"default", "gray", "brown", "orange", "yellow",
	"green", "blue", "purple", "pink", "red",
}

// Property names of the task database. The original board template fixes
// these; they are not discovered dynamically.
const (
	propTitle    = "Name"
	propStatus   = "Status"
	propDeadline = "Deadline"
	propAssign   = "Assign"
	propSelect   = "Select"
)

// Config carries the integration token and database identity.
type Config struct {
	APIKey     string
	DatabaseID string
	// BaseURL overrides the API endpoint, for tests.
	BaseURL string
}

// Client is a Notion-backed board provider.
type Client struct {
	cfg  Config
	http *http.Client
}

// New creates a Notion client.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.notion.com/v1"
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: DefaultTimeout},
	}
}

// Name implements board.Provider.
func (c *Client) Name() string { return "notion" }

// do performs one API call with auth and version headers and returns the
// response body. Non-2xx statuses become errors carrying the raw provider
// message.
func (c *Client) do(ctx context.Context, method, path string, payload interface{}) ([]byte, error) {
	var reader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Notion-Version", apiVersion)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("notion request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("notion error (%d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}

// --- wire shapes (only the fields read) ---

type richText struct {
	Text struct {
		Content string `json:"content"`
	} `json:"text"`
}

type pageProperties struct {
	Name struct {
		Title []richText `json:"title"`
	} `json:"Name"`
	Status struct {
		Status *struct {
			Name string `json:"name"`
		} `json:"status"`
	} `json:"Status"`
	Deadline struct {
		Date *struct {
			Start string `json:"start"`
		} `json:"date"`
	} `json:"Deadline"`
	Assign struct {
		People []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"people"`
	} `json:"Assign"`
	Select struct {
		Select *struct {
			Name  string `json:"name"`
			Color string `json:"color"`
		} `json:"select"`
	} `json:"Select"`
}

type page struct {
	ID         string         `json:"id"`
	URL        string         `json:"url"`
	Properties pageProperties `json:"properties"`
}

type queryResponse struct {
	Results []page `json:"results"`
}

type selectOption struct {
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

type databaseSchema struct {
	Properties map[string]struct {
		Type   string `json:"type"`
		Select struct {
			Options []selectOption `json:"options"`
		} `json:"select"`
		Status struct {
			Options []selectOption `json:"options"`
		} `json:"status"`
	} `json:"properties"`
}

type block struct {
	ID        string `json:"id"`
	Type      string `json:"type"`
	HeadingTwo *struct {
		RichText []struct {
			PlainText string `json:"plain_text"`
		} `json:"rich_text"`
	} `json:"heading_2,omitempty"`
	ToDo *struct {
		RichText []struct {
			PlainText string `json:"plain_text"`
		} `json:"rich_text"`
		Checked bool `json:"checked"`
	} `json:"to_do,omitempty"`
}

type blockChildren struct {
	Results []block `json:"results"`
}

// Snapshot implements board.Provider. One database query for tasks, one
// schema read for statuses and epics, one users listing, plus one block
// read per page for checklists.
func (c *Client) Snapshot(ctx context.Context) (*models.BoardSnapshot, error) {
	schema, err := c.schema(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch database schema: %w", err)
	}

	snap := &models.BoardSnapshot{FetchedAt: time.Now()}
	for _, opt := range schema.Properties[propStatus].Status.Options {
		snap.Statuses = append(snap.Statuses, opt.Name)
	}
	for _, opt := range schema.Properties[propSelect].Select.Options {
		if opt.Name != "" {
			snap.Labels = append(snap.Labels, opt.Name)
		}
	}

	body, err := c.do(ctx, http.MethodPost, "/databases/"+c.cfg.DatabaseID+"/query", map[string]interface{}{})
	if err != nil {
		return nil, fmt.Errorf("query database: %w", err)
	}
	var q queryResponse
	if err := json.Unmarshal(body, &q); err != nil {
		return nil, fmt.Errorf("decode query response: %w", err)
	}

	users, err := c.users(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch users: %w", err)
	}
	snap.Members = users

	for _, p := range q.Results {
		t := models.Task{ID: p.ID, URL: p.URL}
		if len(p.Properties.Name.Title) > 0 {
			t.Name = p.Properties.Name.Title[0].Text.Content
		}
		if p.Properties.Status.Status != nil {
			t.Status = p.Properties.Status.Status.Name
		}
		if p.Properties.Deadline.Date != nil {
			t.Deadline = p.Properties.Deadline.Date.Start
		}
		if p.Properties.Select.Select != nil {
			t.Label = p.Properties.Select.Select.Name
		}
		for _, person := range p.Properties.Assign.People {
			t.Members = append(t.Members, models.Member{ID: person.ID, DisplayName: person.Name})
		}
		checklists, err := c.pageChecklists(ctx, p.ID)
		if err != nil {
			return nil, fmt.Errorf("fetch checklists for %q: %w", t.Name, err)
		}
		t.Checklists = checklists
		snap.Tasks = append(snap.Tasks, t)
	}
	return snap, nil
}

func (c *Client) schema(ctx context.Context) (*databaseSchema, error) {
	body, err := c.do(ctx, http.MethodGet, "/databases/"+c.cfg.DatabaseID, nil)
	if err != nil {
		return nil, err
	}
	var schema databaseSchema
	if err := json.Unmarshal(body, &schema); err != nil {
		return nil, fmt.Errorf("decode schema: %w", err)
	}
	return &schema, nil
}

func (c *Client) users(ctx context.Context) ([]models.Member, error) {
	body, err := c.do(ctx, http.MethodGet, "/users", nil)
	if err != nil {
		return nil, err
	}
	var resp struct {
		Results []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
			Type string `json:"type"`
		} `json:"results"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, err
	}
	var members []models.Member
	for _, u := range resp.Results {
		if u.Type == "bot" {
			continue
		}
		members = append(members, models.Member{ID: u.ID, DisplayName: u.Name})
	}
	return members, nil
}

// pageChecklists reads a page's blocks and groups them: each heading_2
// starts a checklist, the to_do blocks after it are its items. The heading
// block's ID doubles as the checklist ID.
func (c *Client) pageChecklists(ctx context.Context, pageID string) ([]models.Checklist, error) {
	body, err := c.do(ctx, http.MethodGet, "/blocks/"+pageID+"/children", nil)
	if err != nil {
		return nil, err
	}
	var children blockChildren
	if err := json.Unmarshal(body, &children); err != nil {
		return nil, err
	}
	var checklists []models.Checklist
	for _, b := range children.Results {
		switch b.Type {
		case "heading_2":
			name := ""
			if b.HeadingTwo != nil && len(b.HeadingTwo.RichText) > 0 {
				name = b.HeadingTwo.RichText[0].PlainText
			}
			checklists = append(checklists, models.Checklist{ID: b.ID, Name: name})
		case "to_do":
			if len(checklists) == 0 || b.ToDo == nil {
				continue
			}
			name := ""
			if len(b.ToDo.RichText) > 0 {
				name = b.ToDo.RichText[0].PlainText
			}
			state := models.ItemIncomplete
			if b.ToDo.Checked {
				state = models.ItemComplete
			}
			last := len(checklists) - 1
			checklists[last].Items = append(checklists[last].Items, models.ChecklistItem{
				ID:    b.ID,
				Name:  name,
				State: state,
			})
		}
	}
	return checklists, nil
}

// --- property payload builders ---

func titleProp(name string) map[string]interface{} {
	return map[string]interface{}{
		"title": []map[string]interface{}{
			{"text": map[string]string{"content": name}},
		},
	}
}

func textBlock(content string) []map[string]interface{} {
	return []map[string]interface{}{
		{"type": "text", "text": map[string]string{"content": content}},
	}
}

// resolveStatus maps the requested status onto the database's actual
// status options, walking the shared alias chain.
func (c *Client) resolveStatus(ctx context.Context, requested string) (string, error) {
	schema, err := c.schema(ctx)
	if err != nil {
		return "", err
	}
	options := schema.Properties[propStatus].Status.Options
	names := make([]string, len(options))
	for i, o := range options {
		names[i] = o.Name
	}
	return board.ResolveStatus(names, requested)
}

// CreateTask implements board.Provider.
func (c *Client) CreateTask(ctx context.Context, req board.CreateTaskRequest) (string, error) {
	status, err := c.resolveStatus(ctx, req.Status)
	if err != nil {
		return "", err
	}
	props := map[string]interface{}{
		propTitle:  titleProp(req.Name),
		propStatus: map[string]interface{}{"status": map[string]string{"name": status}},
	}
	if req.Deadline != "" {
		props[propDeadline] = map[string]interface{}{"date": map[string]string{"start": req.Deadline}}
	}
	payload := map[string]interface{}{
		"parent":     map[string]string{"database_id": c.cfg.DatabaseID},
		"properties": props,
	}
	if req.Description != "" {
		payload["children"] = []map[string]interface{}{
			{
				"object":    "block",
				"type":      "paragraph",
				"paragraph": map[string]interface{}{"rich_text": textBlock(req.Description)},
			},
		}
	}
	body, err := c.do(ctx, http.MethodPost, "/pages", payload)
	if err != nil {
		return "", err
	}
	var created page
	if err := json.Unmarshal(body, &created); err != nil {
		return "", err
	}
	return created.ID, nil
}

// UpdateTask implements board.Provider.
func (c *Client) UpdateTask(ctx context.Context, taskID string, patch board.TaskPatch) error {
	props := map[string]interface{}{}
	if patch.Name != "" {
		props[propTitle] = titleProp(patch.Name)
	}
	if patch.Status != "" {
		status, err := c.resolveStatus(ctx, patch.Status)
		if err != nil {
			return err
		}
		props[propStatus] = map[string]interface{}{"status": map[string]string{"name": status}}
	}
	if patch.Deadline != "" {
		props[propDeadline] = map[string]interface{}{"date": map[string]string{"start": patch.Deadline}}
	}
	if len(props) == 0 && patch.Description == "" {
		return nil
	}
	if len(props) > 0 {
		payload := map[string]interface{}{"properties": props}
		if _, err := c.do(ctx, http.MethodPatch, "/pages/"+taskID, payload); err != nil {
			return err
		}
	}
	if patch.Description != "" {
		payload := map[string]interface{}{
			"children": []map[string]interface{}{
				{
					"object":    "block",
					"type":      "paragraph",
					"paragraph": map[string]interface{}{"rich_text": textBlock(patch.Description)},
				},
			},
		}
		if _, err := c.do(ctx, http.MethodPatch, "/blocks/"+taskID+"/children", payload); err != nil {
			return err
		}
	}
	return nil
}

// DeleteTask implements board.Provider. Notion archives rather than
// deleting.
func (c *Client) DeleteTask(ctx context.Context, taskID string) error {
	_, err := c.do(ctx, http.MethodPatch, "/pages/"+taskID, map[string]interface{}{"archived": true})
	return err
}

// AddComment implements board.Provider.
func (c *Client) AddComment(ctx context.Context, taskID, text string) error {
	payload := map[string]interface{}{
		"parent":    map[string]string{"page_id": taskID},
		"rich_text": textBlock(text),
	}
	_, err := c.do(ctx, http.MethodPost, "/comments", payload)
	return err
}

// CreateLabel implements board.Provider by appending a select option to the
// database schema, colored with the first unused palette color.
func (c *Client) CreateLabel(ctx context.Context, name string) error {
	schema, err := c.schema(ctx)
	if err != nil {
		return err
	}
	options := schema.Properties[propSelect].Select.Options
	used := make([]string, 0, len(options))
	for _, o := range options {
		if strings.EqualFold(o.Name, name) {
			return nil
		}
		used = append(used, o.Color)
	}
	options = append(options, selectOption{
		Name:  name,
		Color: board.FirstUnusedColor(selectPalette, used, "default"),
	})
	payload := map[string]interface{}{
		"properties": map[string]interface{}{
			propSelect: map[string]interface{}{
				"select": map[string]interface{}{"options": options},
			},
		},
	}
	_, err = c.do(ctx, http.MethodPatch, "/databases/"+c.cfg.DatabaseID, payload)
	return err
}

// AttachLabel implements board.Provider. Setting a select value to an
// unknown option creates that option, so no separate existence check is
// needed here; CreateLabel is still used when color choice matters.
func (c *Client) AttachLabel(ctx context.Context, taskID, name string) error {
	payload := map[string]interface{}{
		"properties": map[string]interface{}{
			propSelect: map[string]interface{}{
				"select": map[string]string{"name": name},
			},
		},
	}
	_, err := c.do(ctx, http.MethodPatch, "/pages/"+taskID, payload)
	return err
}

// AddMember implements board.Provider. The board template tracks a single
// assignee, so assignment replaces the people list, as the original system
// did.
func (c *Client) AddMember(ctx context.Context, taskID, memberID string) error {
	payload := map[string]interface{}{
		"properties": map[string]interface{}{
			propAssign: map[string]interface{}{
				"people": []map[string]string{{"id": memberID}},
			},
		},
	}
	_, err := c.do(ctx, http.MethodPatch, "/pages/"+taskID, payload)
	return err
}

// RemoveMember implements board.Provider by clearing the people list.
func (c *Client) RemoveMember(ctx context.Context, taskID, memberID string) error {
	payload := map[string]interface{}{
		"properties": map[string]interface{}{
			propAssign: map[string]interface{}{
				"people": []map[string]string{},
			},
		},
	}
	_, err := c.do(ctx, http.MethodPatch, "/pages/"+taskID, payload)
	return err
}

// CreateChecklist implements board.Provider: a heading_2 block whose ID
// becomes the checklist ID.
func (c *Client) CreateChecklist(ctx context.Context, taskID, name string) (string, error) {
	payload := map[string]interface{}{
		"children": []map[string]interface{}{
			{
				"object":    "block",
				"type":      "heading_2",
				"heading_2": map[string]interface{}{"rich_text": textBlock(name)},
			},
		},
	}
	body, err := c.do(ctx, http.MethodPatch, "/blocks/"+taskID+"/children", payload)
	if err != nil {
		return "", err
	}
	var children blockChildren
	if err := json.Unmarshal(body, &children); err != nil {
		return "", err
	}
	if len(children.Results) == 0 {
		return "", fmt.Errorf("notion returned no created block")
	}
	return children.Results[0].ID, nil
}

// AddChecklistItem implements board.Provider: a to_do block appended to the
// page. Notion appends at the end, which keeps it under the latest heading;
// items for earlier checklists still land at page bottom, a limitation of
// flat block children.
func (c *Client) AddChecklistItem(ctx context.Context, taskID, checklistID, name string, state models.ItemState) (string, error) {
	payload := map[string]interface{}{
		"children": []map[string]interface{}{
			{
				"object": "block",
				"type":   "to_do",
				"to_do": map[string]interface{}{
					"rich_text": textBlock(name),
					"checked":   state == models.ItemComplete,
				},
			},
		},
	}
	body, err := c.do(ctx, http.MethodPatch, "/blocks/"+taskID+"/children", payload)
	if err != nil {
		return "", err
	}
	var children blockChildren
	if err := json.Unmarshal(body, &children); err != nil {
		return "", err
	}
	if len(children.Results) == 0 {
		return "", fmt.Errorf("notion returned no created block")
	}
	return children.Results[0].ID, nil
}

// SetChecklistItemState implements board.Provider.
func (c *Client) SetChecklistItemState(ctx context.Context, taskID, checklistID, itemID string, state models.ItemState) error {
	payload := map[string]interface{}{
		"to_do": map[string]interface{}{"checked": state == models.ItemComplete},
	}
	_, err := c.do(ctx, http.MethodPatch, "/blocks/"+itemID, payload)
	return err
}

// DeleteChecklistItem implements board.Provider.
func (c *Client) DeleteChecklistItem(ctx context.Context, taskID, checklistID, itemID string) error {
	_, err := c.do(ctx, http.MethodDelete, "/blocks/"+itemID, nil)
	return err
}

// DeleteChecklist implements board.Provider: remove the heading block and
// every item read from the current snapshot grouping.
func (c *Client) DeleteChecklist(ctx context.Context, taskID, checklistID string) error {
	checklists, err := c.pageChecklists(ctx, taskID)
	if err != nil {
		return err
	}
	for _, cl := range checklists {
		if cl.ID != checklistID {
			continue
		}
		for _, item := range cl.Items {
			if _, err := c.do(ctx, http.MethodDelete, "/blocks/"+item.ID, nil); err != nil {
				return err
			}
		}
	}
	_, err = c.do(ctx, http.MethodDelete, "/blocks/"+checklistID, nil)
	return err
}
