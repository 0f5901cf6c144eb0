package scheduler

import "github.com/sysu-ecnc-dev/staffing-planner/backend/internal/domain"

// combinations 按字典序列出从 [0, n) 中选 k 个数的所有组合
func combinations(n, k int) [][]int {
	if k < 0 || k > n {
		return nil
	}

	var result [][]int
	comb := make([]int, k)
	for i := range comb {
		comb[i] = i
	}

	for {
		result = append(result, append([]int(nil), comb...))

		// 找到最右边还能增大的位置
		i := k - 1
		for i >= 0 && comb[i] == n-k+i {
			i--
		}
		if i < 0 {
			return result
		}
		comb[i]++
		for j := i + 1; j < k; j++ {
			comb[j] = comb[j-1] + 1
		}
	}
}

// normalizedHours 返回以小时为单位的开始与结束时间，跨零点的班次结束时间加 24
// 是否跨零点按分钟判断：开始时间等于结束时间，或者同一小时内结束分钟早于开始分钟，都视为 24 小时班次
func normalizedHours(start, end domain.TimeOfDay) (int, int) {
	startHour, endHour := start.Hour, end.Hour
	if !start.Before(end) {
		endHour += domain.HoursInDay
	}
	return startHour, endHour
}
