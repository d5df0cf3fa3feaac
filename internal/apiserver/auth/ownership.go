package auth

import "strings"

// SameID 资源归属比较
//
// 归一化为去除首尾空白的字符串后精确比较。资源不存在的判定（404）
// 必须先于归属判定（403），由调用方在取资源时完成。
func SameID(ownerID, principalID string) bool {
	ownerID = strings.TrimSpace(ownerID)
	principalID = strings.TrimSpace(principalID)
	return ownerID != "" && ownerID == principalID
}
