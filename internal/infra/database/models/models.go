package models

import (
	"time"
)

type AppUser struct {
	ID            int       `json:"id" gorm:"primaryKey;autoIncrement"`
	Name          string    `json:"name" gorm:"type:text;uniqueIndex"`
	Pubkey        string    `json:"pubkey" gorm:"type:text;not null"`
	LastTweak     int64     `json:"lastTweak" gorm:"type:bigint;not null;default:0"`
	Relays        []string  `json:"relays" gorm:"serializer:json;type:jsonb"`
	FederationIDs []string  `json:"federationIDs" gorm:"serializer:json;type:jsonb"`
	CDate         time.Time `json:"cdate" gorm:"->;<-:create;type:timestamp with time zone;not null;default:clock_timestamp()"`
}

type Invoice struct {
	ID           int       `json:"id" gorm:"primaryKey;autoIncrement"`
	OpID         string    `json:"opID" gorm:"type:text;uniqueIndex"`
	FederationID string    `json:"federationID" gorm:"type:text;index"`
	AppUserID    int       `json:"appUserID" gorm:"index"`
	AppUser      AppUser   `json:"-" gorm:"foreignKey:AppUserID;references:ID"`
	Bolt11       string    `json:"bolt11" gorm:"type:text"`
	Amount       int64     `json:"amount" gorm:"type:bigint;not null"`
	Tweak        int64     `json:"tweak" gorm:"type:bigint;not null"`
	State        int       `json:"state" gorm:"type:int;not null;default:0;index"`
	CDate        time.Time `json:"cdate" gorm:"->;<-:create;type:timestamp with time zone;not null;default:clock_timestamp()"`
	MDate        time.Time `json:"mdate" gorm:"autoUpdateTime"`
}
