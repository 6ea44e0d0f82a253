package models

type User struct {
	ID          int64  `json:"id,string,omitempty"`
	Email       string `json:"email,omitempty"`
	UserName    string `json:"userName,omitempty"`
	DisplayName string `json:"displayName"`
	Picture     string `json:"picture"`
	BirthDate   string `json:"birthDate,omitempty"`
	Password    []byte `json:"-"`
}

type Server struct {
	ID      int64  `json:"id,string"`
	OwnerID int64  `json:"ownerID,string"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
	Banner  string `json:"banner"`
	// Role is the requesting user's own role on this server,
	// filled in per request, never stored on the servers table
	Role string `json:"role,omitempty"`
}

type FriendEdge struct {
	ID           int64  `json:"id,string"`
	SenderID     int64  `json:"senderID,string"`
	ReceiverID   int64  `json:"receiverID,string"`
	Status       string `json:"status"`
	SenderName   string `json:"senderName"`
	ReceiverName string `json:"receiverName"`
}

type ServerInvite struct {
	ID          int64  `json:"id,string"`
	ServerID    int64  `json:"serverID,string"`
	SenderID    int64  `json:"senderID,string"`
	RecipientID int64  `json:"recipientID,string"`
	Status      string `json:"status"`
}

type Channel struct {
	ID          int64  `json:"id,string"`
	ServerID    int64  `json:"serverID,string"`
	Kind        string `json:"kind"`
	Name        string `json:"name"`
	Description string `json:"description"`
	IsPrivate   bool   `json:"isPrivate"`
	Position    int64  `json:"position"`
}

type VoiceSession struct {
	ChannelID int64 `json:"channelID,string"`
	UserID    int64 `json:"userID,string"`
	LastSeen  int64 `json:"lastSeen"`
}

type ConfigFile struct {
	Address                  string
	Port                     string
	BehindNginx              bool
	TlsCert                  string
	TlsKey                   string
	Cors                     bool
	PrintHttpRequests        bool
	JwtSecret                string
	SnowflakeWorkerID        int64
	SelfContained            bool
	RequireEmailConfirmation bool
	DbFile                   string
	DbUser                   string
	DbPassword               string
	DbAddress                string
	DbPort                   string
	DbDatabase               string
	RedisAddress             string
	RedisPassword            string
	SmtpUsername             string
	SmtpPassword             string
	SmtpServer               string
	SmtpPort                 int
}
