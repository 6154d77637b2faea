package core

// ContentItem 是一次计算中只读的目录快照条目。
type ContentItem struct {
	ID    int64
	Title string

	// Genre 是未切分的类型串，例如 "Action, Drama"
	Genre string

	// Emotions 情绪画像（joy/sadness/...），Perception 观感画像（plot/acting/...）
	Emotions   Profile
	Perception Profile

	// Popularity 聚合热度（hype index），用于冷启动的热门兜底
	Popularity float64
	AvgRating  float64
}

// Rating 是 (用户, 内容, 评分) 三元组。
type Rating struct {
	UserID int64
	ItemID int64
	Score  float64
}

// Recommendation 是一条推荐结果。ID 是本轮计算内的顺序号（1..N），跨轮不稳定。
type Recommendation struct {
	ID     int64   `json:"id"`
	UserID int64   `json:"user_id"`
	ItemID int64   `json:"content_id"`
	Score  float64 `json:"score"`
	Reason string  `json:"reason"`
}

// RatingSet 是去重后的评分集合：同一 (user, item) 以最后读到的值为准，
// 用户顺序与评分顺序均保持首次出现的顺序。
type RatingSet struct {
	users  []int64
	byUser map[int64][]Rating
	index  map[int64]map[int64]int
	total  int
}

// NewRatingSet 按读取顺序构建 RatingSet。
func NewRatingSet(ratings []Rating) *RatingSet {
	rs := &RatingSet{
		byUser: make(map[int64][]Rating),
		index:  make(map[int64]map[int64]int),
	}
	for _, r := range ratings {
		rs.Add(r)
	}
	return rs
}

// Add 追加一条评分；重复的 (user, item) 覆盖旧值但保留原位置。
func (rs *RatingSet) Add(r Rating) {
	idx, ok := rs.index[r.UserID]
	if !ok {
		idx = make(map[int64]int)
		rs.index[r.UserID] = idx
		rs.users = append(rs.users, r.UserID)
	}
	if pos, dup := idx[r.ItemID]; dup {
		rs.byUser[r.UserID][pos] = r
		return
	}
	idx[r.ItemID] = len(rs.byUser[r.UserID])
	rs.byUser[r.UserID] = append(rs.byUser[r.UserID], r)
	rs.total++
}

// Users 返回出现过评分的用户（首次出现顺序）。
func (rs *RatingSet) Users() []int64 { return rs.users }

// ForUser 返回用户的评分（首次出现顺序）。
func (rs *RatingSet) ForUser(userID int64) []Rating { return rs.byUser[userID] }

// Rating 返回用户对内容的评分。
func (rs *RatingSet) Rating(userID, itemID int64) (float64, bool) {
	if rs == nil {
		return 0, false
	}
	pos, ok := rs.index[userID][itemID]
	if !ok {
		return 0, false
	}
	return rs.byUser[userID][pos].Score, true
}

// Len 返回去重后的评分数。
func (rs *RatingSet) Len() int { return rs.total }

// Empty 表示系统中没有任何评分。
func (rs *RatingSet) Empty() bool { return rs == nil || rs.total == 0 }

// All 按用户顺序展开全部评分。
func (rs *RatingSet) All() []Rating {
	out := make([]Rating, 0, rs.total)
	for _, u := range rs.users {
		out = append(out, rs.byUser[u]...)
	}
	return out
}
