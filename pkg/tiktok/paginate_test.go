package tiktok

import (
	"errors"
	"testing"
)

func TestFetchAllByPage(t *testing.T) {
	pages := map[int][]string{
		1: {"a", "b"},
		2: {"c", "d"},
		3: {"e"},
	}

	got, err := FetchAllByPage(func(page int) ([]string, int, error) {
		return pages[page], 5, nil
	})
	if err != nil {
		t.Fatalf("分页拉取失败: %v", err)
	}
	if len(got) != 5 {
		t.Errorf("条目数 = %d, want 5", len(got))
	}
	if got[0] != "a" || got[4] != "e" {
		t.Errorf("条目顺序错误: %v", got)
	}
}

func TestFetchAllByPage_StopsOnEmptyPage(t *testing.T) {
	calls := 0
	// total 声称有 100 条但第 2 页就拉空了，不能死循环
	got, err := FetchAllByPage(func(page int) ([]int, int, error) {
		calls++
		if page == 1 {
			return []int{1, 2}, 100, nil
		}
		return nil, 100, nil
	})
	if err != nil {
		t.Fatalf("分页拉取失败: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("条目数 = %d, want 2", len(got))
	}
	if calls != 2 {
		t.Errorf("调用次数 = %d, want 2", calls)
	}
}

func TestFetchAllByPage_PropagatesError(t *testing.T) {
	wantErr := errors.New("boom")
	_, err := FetchAllByPage(func(page int) ([]int, int, error) {
		if page == 2 {
			return nil, 0, wantErr
		}
		return []int{1}, 10, nil
	})
	if !errors.Is(err, wantErr) {
		t.Errorf("err = %v, want %v", err, wantErr)
	}
}

func TestFetchAllByCursor(t *testing.T) {
	var cursors []string
	got, err := FetchAllByCursor(func(cursor string) ([]string, string, bool, error) {
		cursors = append(cursors, cursor)
		switch cursor {
		case "":
			return []string{"a", "b"}, "c1", true, nil
		case "c1":
			return []string{"c"}, "c2", true, nil
		default:
			return []string{"d"}, "", false, nil
		}
	})
	if err != nil {
		t.Fatalf("游标拉取失败: %v", err)
	}
	if len(got) != 4 {
		t.Errorf("条目数 = %d, want 4", len(got))
	}
	if len(cursors) != 3 || cursors[1] != "c1" || cursors[2] != "c2" {
		t.Errorf("游标序列错误: %v", cursors)
	}
}

func TestFetchAllByCursor_StopsOnEmptyPage(t *testing.T) {
	got, err := FetchAllByCursor(func(cursor string) ([]int, string, bool, error) {
		if cursor == "" {
			return []int{1}, "next", true, nil
		}
		// more 还是 true 但已经拉空，立即停止
		return nil, "next2", true, nil
	})
	if err != nil {
		t.Fatalf("游标拉取失败: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("条目数 = %d, want 1", len(got))
	}
}
