package api

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kalambet/folio/internal/profile"
)

// --- helpers ---

func staticProvider(p profile.Profile, err error) profile.Provider {
	return profile.ProviderFunc(func(context.Context) (profile.Profile, error) {
		return profile.Clone(p), err
	})
}

func toolText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("no content in result")
	}
	tc, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected TextContent, got %T", result.Content[0])
	}
	return tc.Text
}

func makeCallToolRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func makeReadResourceRequest(uri string) mcp.ReadResourceRequest {
	return mcp.ReadResourceRequest{
		Params: mcp.ReadResourceParams{
			URI: uri,
		},
	}
}

// --- tests ---

func TestMCPTool_GetProfile(t *testing.T) {
	deps := MCPDeps{Provider: staticProvider(profile.Sample(), nil)}
	handler := mcpGetProfile(deps)

	result, err := handler(context.Background(), makeCallToolRequest("get_profile", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected error: %s", toolText(t, result))
	}

	var got profile.Profile
	if err := json.Unmarshal([]byte(toolText(t, result)), &got); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if got.Name != "Adrian Brewer" {
		t.Errorf("name = %q, want Adrian Brewer", got.Name)
	}
	if len(got.Products) != 2 {
		t.Errorf("products = %d, want 2", len(got.Products))
	}
}

func TestMCPTool_GetProfile_NotSeeded(t *testing.T) {
	deps := MCPDeps{Provider: staticProvider(profile.Profile{}, profile.ErrNotSeeded)}
	handler := mcpGetProfile(deps)

	result, err := handler(context.Background(), makeCallToolRequest("get_profile", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected error result")
	}
	if !strings.Contains(toolText(t, result), "folio profile seed") {
		t.Errorf("message = %q, want seeding hint", toolText(t, result))
	}
}

func TestMCPTool_ProfileSummary(t *testing.T) {
	deps := MCPDeps{Provider: staticProvider(profile.Sample(), nil)}
	handler := mcpProfileSummary(deps)

	result, err := handler(context.Background(), makeCallToolRequest("profile_summary", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected error: %s", toolText(t, result))
	}

	text := toolText(t, result)
	if text != profile.Summary(profile.Sample()) {
		t.Errorf("summary = %q", text)
	}
	if !strings.HasPrefix(text, "Adrian Brewer") {
		t.Errorf("summary should lead with the name: %q", text)
	}
}

func TestMCPTool_ProfileSummary_ProviderError(t *testing.T) {
	deps := MCPDeps{Provider: staticProvider(profile.Profile{}, errors.New("boom"))}
	handler := mcpProfileSummary(deps)

	result, err := handler(context.Background(), makeCallToolRequest("profile_summary", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected error result")
	}
	if !strings.Contains(toolText(t, result), "boom") {
		t.Errorf("message = %q, want the cause", toolText(t, result))
	}
}

func TestMCPResource_Profile(t *testing.T) {
	deps := MCPDeps{Provider: staticProvider(profile.Sample(), nil)}
	handler := mcpResourceProfile(deps)

	contents, err := handler(context.Background(), makeReadResourceRequest(ProfileResourceURI))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(contents) != 1 {
		t.Fatalf("expected 1 content, got %d", len(contents))
	}

	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok {
		t.Fatalf("expected TextResourceContents, got %T", contents[0])
	}
	if tc.URI != ProfileResourceURI {
		t.Errorf("URI = %q", tc.URI)
	}
	if tc.MIMEType != "application/json" {
		t.Errorf("MIMEType = %q", tc.MIMEType)
	}

	var got profile.Profile
	if err := json.Unmarshal([]byte(tc.Text), &got); err != nil {
		t.Fatalf("parsing resource: %v", err)
	}
	if got.Location != "San Francisco, CA" {
		t.Errorf("location = %q", got.Location)
	}
}

func TestMCPResource_Profile_Error(t *testing.T) {
	deps := MCPDeps{Provider: staticProvider(profile.Profile{}, profile.ErrNotSeeded)}
	handler := mcpResourceProfile(deps)

	_, err := handler(context.Background(), makeReadResourceRequest(ProfileResourceURI))
	if !errors.Is(err, profile.ErrNotSeeded) {
		t.Fatalf("err = %v, want ErrNotSeeded", err)
	}
}

func TestNewMCPServer_RegistersTools(t *testing.T) {
	s := NewMCPServer(MCPDeps{Provider: staticProvider(profile.Sample(), nil), Version: "test"})

	resp := s.HandleMessage(context.Background(), json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	b, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal response: %v", err)
	}
	for _, name := range []string{"get_profile", "profile_summary"} {
		if !strings.Contains(string(b), `"`+name+`"`) {
			t.Errorf("tool %q not listed in %s", name, b)
		}
	}
}
