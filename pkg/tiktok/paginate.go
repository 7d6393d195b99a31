package tiktok

// ==================== 分页拉取 ====================
//
// 平台有两套分页协议：商品走页号 + total，订单走游标 + more 标志。
// 两个循环的共同退出条件是"本页为空"，即使服务端的 total/more 元数据
// 声称还有剩余也立即停止，避免在分页元数据不一致时死循环。

// PageFunc 按页号拉取一页，返回本页条目和服务端报告的总数
type PageFunc[T any] func(page int) (items []T, total int, err error)

// FetchAllByPage 从第 1 页开始拉到拉空为止
func FetchAllByPage[T any](fetch PageFunc[T]) ([]T, error) {
	var all []T
	page := 1
	for {
		items, total, err := fetch(page)
		if err != nil {
			return nil, err
		}
		all = append(all, items...)
		if len(items) == 0 || total == 0 || len(all) >= total {
			return all, nil
		}
		page++
	}
}

// CursorFunc 按游标拉取一页
type CursorFunc[T any] func(cursor string) (items []T, nextCursor string, more bool, err error)

// FetchAllByCursor 从空游标开始拉到 more 为 false 或拉空为止
func FetchAllByCursor[T any](fetch CursorFunc[T]) ([]T, error) {
	var all []T
	cursor := ""
	for {
		items, next, more, err := fetch(cursor)
		if err != nil {
			return nil, err
		}
		all = append(all, items...)
		if len(items) == 0 || !more {
			return all, nil
		}
		cursor = next
	}
}
