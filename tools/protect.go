// Encryption tools.

package tools

import (
	"context"
	"encoding/json"

	"github.com/richinex/pdfmcp/engine"
	"github.com/richinex/pdfmcp/model"
)

type protectArgs struct {
	Source        model.SourceRef `json:"source"`
	UserPassword  string          `json:"user_password"`
	OwnerPassword string          `json:"owner_password"`
	Permissions   string          `json:"permissions"`
	Password      string          `json:"password"`
	OutputPath    string          `json:"output_path"`
}

func (a *protectArgs) validate() error {
	if err := a.Source.Validate(); err != nil {
		return invalidArg("source: exactly one of path, url, base64, cache_key must be set")
	}
	if a.UserPassword == "" {
		return invalidArg("user_password is required")
	}
	switch engine.Permissions(a.Permissions) {
	case "", engine.PermissionsAll, engine.PermissionsPrint, engine.PermissionsNone:
	default:
		return invalidArg("permissions must be one of all, print, none")
	}
	return nil
}

// ProtectTool encrypts a document with AES-256.
type ProtectTool struct {
	env *Env
}

// NewProtectTool creates the protect_pdf tool.
func NewProtectTool(env *Env) *ProtectTool {
	return &ProtectTool{env: env}
}

func (t *ProtectTool) Metadata() ToolMetadata {
	return ToolMetadata{
		Name:        "protect_pdf",
		Description: "Encrypt a PDF with AES-256 using a user (open) password and an owner (permissions) password.",
		Parameters: []ToolParameter{
			sourceParam,
			{Name: "user_password", ParamType: ParamString, Description: "Password required to open the document", Required: true},
			{Name: "owner_password", ParamType: ParamString, Description: "Password for changing permissions (defaults to user_password)"},
			{Name: "permissions", ParamType: ParamString, Description: "Permission preset granted to users", Enum: []string{"all", "print", "none"}, Default: "all"},
			outputPathParam,
			{Name: "password", ParamType: ParamString, Description: "Current password, if the source is already encrypted"},
		},
	}
}

func (t *ProtectTool) Validate(args json.RawMessage) error {
	var a protectArgs
	if err := decodeArgs(args, &a); err != nil {
		return err
	}
	return a.validate()
}

func (t *ProtectTool) Execute(ctx context.Context, args json.RawMessage) (ToolResult, error) {
	var a protectArgs
	if err := decodeArgs(args, &a); err != nil {
		return FailureResult(err), nil
	}
	if err := a.validate(); err != nil {
		return FailureResult(err), nil
	}

	resolved, err := t.env.Resolver.Resolve(ctx, a.Source)
	if err != nil {
		return FailureResult(err), nil
	}
	pages, err := t.env.Engine.PageCount(ctx, resolved.Data, a.Password)
	if err != nil {
		return FailureResult(err), nil
	}

	perms := engine.Permissions(a.Permissions)
	if perms == "" {
		perms = engine.PermissionsAll
	}
	data, err := t.env.Engine.Encrypt(ctx, resolved.Data, engine.EncryptOptions{
		Password:      a.Password,
		UserPassword:  a.UserPassword,
		OwnerPassword: a.OwnerPassword,
		Permissions:   perms,
	})
	if err != nil {
		return FailureResult(err), nil
	}
	out, err := t.env.storeOutput(ctx, data, a.OutputPath)
	if err != nil {
		return FailureResult(err), nil
	}

	return JSONResult(struct {
		Source          string `json:"source"`
		Encryption      string `json:"encryption"`
		Permissions     string `json:"permissions"`
		OutputPageCount int    `json:"output_page_count"`
		outputInfo
	}{resolved.DisplayName, "AES-256", string(perms), pages, out}), nil
}

type unprotectArgs struct {
	Source     model.SourceRef `json:"source"`
	Password   string          `json:"password"`
	OutputPath string          `json:"output_path"`
}

func (a *unprotectArgs) validate() error {
	if err := a.Source.Validate(); err != nil {
		return invalidArg("source: exactly one of path, url, base64, cache_key must be set")
	}
	if a.Password == "" {
		return invalidArg("password is required")
	}
	return nil
}

// UnprotectTool removes encryption from a document.
type UnprotectTool struct {
	env *Env
}

// NewUnprotectTool creates the unprotect_pdf tool.
func NewUnprotectTool(env *Env) *UnprotectTool {
	return &UnprotectTool{env: env}
}

func (t *UnprotectTool) Metadata() ToolMetadata {
	return ToolMetadata{
		Name:        "unprotect_pdf",
		Description: "Remove encryption from a PDF given its password.",
		Parameters: []ToolParameter{
			sourceParam,
			{Name: "password", ParamType: ParamString, Description: "User or owner password of the document", Required: true},
			outputPathParam,
		},
	}
}

func (t *UnprotectTool) Validate(args json.RawMessage) error {
	var a unprotectArgs
	if err := decodeArgs(args, &a); err != nil {
		return err
	}
	return a.validate()
}

func (t *UnprotectTool) Execute(ctx context.Context, args json.RawMessage) (ToolResult, error) {
	var a unprotectArgs
	if err := decodeArgs(args, &a); err != nil {
		return FailureResult(err), nil
	}
	if err := a.validate(); err != nil {
		return FailureResult(err), nil
	}

	resolved, err := t.env.Resolver.Resolve(ctx, a.Source)
	if err != nil {
		return FailureResult(err), nil
	}
	data, err := t.env.Engine.Decrypt(ctx, resolved.Data, a.Password)
	if err != nil {
		return FailureResult(err), nil
	}
	pages, err := t.env.Engine.PageCount(ctx, data, "")
	if err != nil {
		return FailureResult(err), nil
	}
	out, err := t.env.storeOutput(ctx, data, a.OutputPath)
	if err != nil {
		return FailureResult(err), nil
	}

	return JSONResult(struct {
		Source          string `json:"source"`
		OutputPageCount int    `json:"output_page_count"`
		outputInfo
	}{resolved.DisplayName, pages, out}), nil
}
