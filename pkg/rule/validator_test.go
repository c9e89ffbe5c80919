package rule_test

import (
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"

	"github.com/yeisme/cloudbox/pkg/rule"
)

// renameInput 模拟重命名请求体.
type renameInput struct {
	NewName string `json:"newName" rule:"required,objname"`
	Days    int    `json:"expiresIn" rule:"gte=0,lte=365"`
}

// TestEngine 测试 Engine 函数返回非 nil 实例.
func TestEngine(t *testing.T) {
	if rule.Engine() == nil {
		t.Error("Engine() returned nil")
	}
}

// TestValidateStruct 测试 objname 规则与范围规则.
func TestValidateStruct(t *testing.T) {
	cases := []struct {
		name  string
		in    renameInput
		valid bool
	}{
		{"plain", renameInput{NewName: "report.pdf", Days: 30}, true},
		{"unicode", renameInput{NewName: "季度报告 2024.docx"}, true},
		{"empty", renameInput{NewName: ""}, false},
		{"dot", renameInput{NewName: "."}, false},
		{"dotdot", renameInput{NewName: ".."}, false},
		{"slash", renameInput{NewName: "a/b"}, false},
		{"backslash", renameInput{NewName: `a\b`}, false},
		{"too long", renameInput{NewName: strings.Repeat("x", rule.MaxObjectNameLength+1)}, false},
		{"negative days", renameInput{NewName: "ok", Days: -1}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := rule.ValidateStruct(tc.in)
			if tc.valid && err != nil {
				t.Errorf("expected valid, got %v", err)
			}

			if !tc.valid && err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

// TestErrors 错误字段名使用 json 标签.
func TestErrors(t *testing.T) {
	err := rule.ValidateStruct(renameInput{NewName: ""})
	if err == nil {
		t.Fatal("expected error")
	}

	fields := rule.Errors(err)
	if _, ok := fields["newName"]; !ok {
		t.Errorf("expected newName in %v", fields)
	}

	if rule.Errors(nil) != nil {
		t.Error("Errors(nil) should be nil")
	}
}

// TestValidateVar 测试 ValidateVar 对变量的验证.
func TestValidateVar(t *testing.T) {
	if err := rule.ValidateVar("test@example.com", "required,email"); err != nil {
		t.Errorf("Expected no error for valid email, got %v", err)
	}

	if err := rule.ValidateVar("invalid-email", "required,email"); err == nil {
		t.Error("Expected error for invalid email, got nil")
	}

	if err := rule.ValidateVar("photo.png", "objname"); err != nil {
		t.Errorf("Expected no error for valid name, got %v", err)
	}
}

// TestRegisterValidation 测试注册自定义验证.
func TestRegisterValidation(t *testing.T) {
	err := rule.RegisterValidation("even_length", func(fl validator.FieldLevel) bool {
		return len(fl.Field().String())%2 == 0
	})
	if err != nil {
		t.Fatalf("Failed to register validation: %v", err)
	}

	if err := rule.ValidateVar("test", "even_length"); err != nil {
		t.Errorf("Expected no error for even length string, got %v", err)
	}

	if err := rule.ValidateVar("test1", "even_length"); err == nil {
		t.Error("Expected error for odd length string, got nil")
	}
}

// TestRegisterAlias 测试注册别名.
func TestRegisterAlias(t *testing.T) {
	rule.RegisterAlias("min_required", "required,min=3")

	if err := rule.ValidateVar("abc", "min_required"); err != nil {
		t.Errorf("Expected no error for valid string with alias, got %v", err)
	}

	if err := rule.ValidateVar("ab", "min_required"); err == nil {
		t.Error("Expected error for invalid string with alias, got nil")
	}
}
