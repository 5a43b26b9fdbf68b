// Package model はドメインモデルを定義する。
package model

import "time"

// User はマッチング対象のユーザーとプロフィールを表す。
// 作成・更新は外部のID/プロフィール管理が担い、エンジンは参照のみ行う。
type User struct {
	ID             string
	Username       string
	FirstName      string
	LastName       string
	DateOfBirth    *time.Time
	Gender         string
	Bio            string
	ProfilePicture string
	City           string
	Country        string
	CreatedAt      time.Time
}

// Age は現在日時を基準にした年齢を返す。生年月日が未登録の場合はnilを返す。
func (u *User) Age(now time.Time) *int {
	if u == nil || u.DateOfBirth == nil {
		return nil
	}
	age := AgeAt(*u.DateOfBirth, now)
	return &age
}

// AgeAt は生年月日とnowから満年齢を算出する。
// nowの月日が誕生月日より前であれば1歳引く。
func AgeAt(birth, now time.Time) int {
	age := now.Year() - birth.Year()
	if now.Month() < birth.Month() || (now.Month() == birth.Month() && now.Day() < birth.Day()) {
		age--
	}
	return age
}
