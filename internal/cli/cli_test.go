package cli

import (
	"bytes"
	"strings"
	"testing"
)

func TestCommandTree(t *testing.T) {
	want := map[string]bool{"stats": false, "serve": false, "export": false, "token": false, "history": false, "version": false}
	for _, c := range rootCmd.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Fatalf("缺少子命令 %s", name)
		}
	}
}

func TestVersionCommand(t *testing.T) {
	t.Setenv("BRIDGEWRAPPED_LOGGING_OUTPUT", "stderr")
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version", "--config", ""})
	defer rootCmd.SetArgs(nil)

	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("执行 version 失败: %v", err)
	}
	if !strings.Contains(out.String(), "bridgewrapped dev") || !strings.Contains(out.String(), "user-agent: bridgewrapped/dev") {
		t.Fatalf("版本输出不正确: %q", out.String())
	}
	if getApp() == nil {
		t.Fatal("PersistentPreRunE 应初始化 app")
	}
}

func TestStatsRequiresAddress(t *testing.T) {
	if err := statsCmd.Args(statsCmd, nil); err == nil {
		t.Fatal("缺少地址参数应报错")
	}
}
