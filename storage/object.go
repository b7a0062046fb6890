package storage

// ObjectResource is the Cloud Storage JSON representation of an object.
// Numeric fields such as Size and Generation are transmitted as strings.
type ObjectResource struct {
	Kind                    string                    `json:"kind"`
	ID                      string                    `json:"id"`
	SelfLink                string                    `json:"selfLink"`
	Name                    string                    `json:"name"`
	Bucket                  string                    `json:"bucket"`
	Generation              string                    `json:"generation"`
	Metageneration          string                    `json:"metageneration"`
	ContentType             string                    `json:"contentType"`
	TimeCreated             string                    `json:"timeCreated"`
	Updated                 string                    `json:"updated"`
	TimeDeleted             string                    `json:"timeDeleted,omitempty"`
	TemporaryHold           *bool                     `json:"temporaryHold,omitempty"`
	EventBasedHold          *bool                     `json:"eventBasedHold,omitempty"`
	RetentionExpirationTime string                    `json:"retentionExpirationTime,omitempty"`
	StorageClass            string                    `json:"storageClass"`
	TimeStorageClassUpdated string                    `json:"timeStorageClassUpdated,omitempty"`
	Size                    string                    `json:"size"`
	MD5Hash                 string                    `json:"md5Hash"`
	MediaLink               string                    `json:"mediaLink"`
	ContentEncoding         string                    `json:"contentEncoding,omitempty"`
	ContentDisposition      string                    `json:"contentDisposition,omitempty"`
	ContentLanguage         string                    `json:"contentLanguage,omitempty"`
	CacheControl            string                    `json:"cacheControl,omitempty"`
	Metadata                map[string]string         `json:"metadata,omitempty"`
	ACL                     []ObjectACLResource       `json:"acl,omitempty"`
	Owner                   *ObjectOwner              `json:"owner,omitempty"`
	CRC32C                  string                    `json:"crc32c"`
	ComponentCount          string                    `json:"componentCount,omitempty"`
	Etag                    string                    `json:"etag"`
	CustomerEncryption      *ObjectCustomerEncryption `json:"customerEncryption,omitempty"`
	KMSKeyName              string                    `json:"kmsKeyName,omitempty"`
}

// ObjectOwner identifies the owner of an object.
type ObjectOwner struct {
	Entity   string `json:"entity"`
	EntityID string `json:"entityId"`
}

// ObjectCustomerEncryption describes a customer-supplied encryption key.
type ObjectCustomerEncryption struct {
	EncryptionAlgorithm string `json:"encryptionAlgorithm"`
	KeySHA256           string `json:"keySha256"`
}

// ObjectACLResource is one access control entry of an object.
type ObjectACLResource struct {
	Kind        string               `json:"kind"`
	Entity      string               `json:"entity"`
	Role        string               `json:"role"`
	Email       string               `json:"email"`
	EntityID    string               `json:"entityId"`
	Domain      string               `json:"domain"`
	ProjectTeam ObjectACLProjectTeam `json:"projectTeam"`
	Etag        string               `json:"etag"`
}

// ObjectACLProjectTeam names the project team of an ACL entry.
type ObjectACLProjectTeam struct {
	ProjectNumber string `json:"projectNumber"`
	Team          string `json:"team"`
}

// ObjectSummary is the subset of object attributes returned by ListObjects.
type ObjectSummary struct {
	Name         string
	Bucket       string
	ContentType  string
	Size         int64
	Generation   int64
	StorageClass string
	MD5Hash      []byte
	Prefix       string
}

// ObjectPage is one page of a listing. NextPageToken is empty on the last page.
type ObjectPage struct {
	Objects       []ObjectSummary
	NextPageToken string
}
