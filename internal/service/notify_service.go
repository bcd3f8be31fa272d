package service

import (
	"bytes"
	"fmt"
	"html/template"
	"log"
	"sync"
	"sync/atomic"

	"github.com/inkpress/internal/db"
	"github.com/inkpress/internal/mailer"
	"gorm.io/gorm"
)

const (
	defaultNotifyBatchSize = 500
	relatedPostLimit       = 2
)

// NotifyService 在文章发布后向全部订阅者群发通知邮件。
// 相对调用方是 fire-and-forget：不回传失败，也不阻塞写路径。
type NotifyService struct {
	db          *gorm.DB
	subscribers *SubscriberService
	activities  *ActivityService
	mailer      mailer.Mailer
	baseURL     string
	batchSize   int
}

// NewNotifyService creates a NotifyService instance.
func NewNotifyService(gdb *gorm.DB, subscribers *SubscriberService, activities *ActivityService, m mailer.Mailer, baseURL string) *NotifyService {
	return &NotifyService{
		db:          gdb,
		subscribers: subscribers,
		activities:  activities,
		mailer:      m,
		baseURL:     baseURL,
		batchSize:   defaultNotifyBatchSize,
	}
}

// WithBatchSize 允许在测试或特定场景下调整批量大小。
func (s *NotifyService) WithBatchSize(n int) *NotifyService {
	if n <= 0 {
		return s
	}
	s.batchSize = n
	return s
}

// Dispatch 在后台触发群发。一旦触发即运行到订阅者名单耗尽，
// 与触发请求的生命周期无关。
func (s *NotifyService) Dispatch(post db.Post) {
	go func() {
		if err := s.NotifyPublish(post); err != nil {
			log.Printf("notify: publish broadcast for post %d failed: %v", post.ID, err)
		}
	}()
}

var publishMailTemplate = template.Must(template.New("publish").Parse(`<h2>{{.Title}}</h2>
<p>{{.Excerpt}}</p>
<p>By {{.Author}}{{if .Categories}} in {{range $i, $c := .Categories}}{{if $i}}, {{end}}{{$c}}{{end}}{{end}} · {{.ReadMinutes}} min read</p>
<p><a href="{{.PostURL}}">Read the full post</a></p>
{{if .Related}}<h3>You might also like</h3>
<ul>{{range .Related}}<li><a href="{{.URL}}">{{.Title}}</a></li>{{end}}</ul>{{end}}
<p><a href="{{.UnsubscribeURL}}">Unsubscribe</a></p>
`))

type relatedPostData struct {
	Title string
	URL   string
}

type publishMailData struct {
	Title          string
	Excerpt        string
	Author         string
	Categories     []string
	ReadMinutes    int
	PostURL        string
	Related        []relatedPostData
	UnsubscribeURL string
}

// NotifyPublish 按固定批量翻页遍历订阅者并逐批并发投递个性化邮件。
// 单个收件人的失败只记日志，不中断所在批次，也不影响后续批次；
// 没有重试、没有跨次发布的去重，一次调用对每个订阅者至多发送一封。
func (s *NotifyService) NotifyPublish(post db.Post) error {
	data, err := s.buildMailData(post)
	if err != nil {
		return err
	}
	subject := fmt.Sprintf("New post: %s", post.Title)

	var sent, failed uint64
	for offset := 0; ; offset += s.batchSize {
		batch, err := s.subscribers.ListBatch(offset, s.batchSize)
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			break
		}

		var wg sync.WaitGroup
		for _, subscriber := range batch {
			wg.Add(1)
			go func(subscriber db.Subscriber) {
				defer wg.Done()

				html, err := s.renderMail(data, subscriber)
				if err != nil {
					log.Printf("notify: render for %s failed: %v", subscriber.Email, err)
					atomic.AddUint64(&failed, 1)
					return
				}

				msg := mailer.Message{To: subscriber.Email, Subject: subject, HTML: html}
				if err := s.mailer.Send(msg); err != nil {
					log.Printf("notify: send to %s failed: %v", subscriber.Email, err)
					atomic.AddUint64(&failed, 1)
					return
				}
				atomic.AddUint64(&sent, 1)
			}(subscriber)
		}
		wg.Wait()
	}

	// 完成后把发送/失败数落入活动日志，便于观测
	message := fmt.Sprintf("%q notified subscribers: %d sent, %d failed", post.Title, sent, failed)
	if err := s.activities.Create("Newsletter Sent", message); err != nil {
		log.Printf("notify: record activity failed: %v", err)
	}

	return nil
}

func (s *NotifyService) buildMailData(post db.Post) (publishMailData, error) {
	data := publishMailData{
		Title:       post.Title,
		Excerpt:     post.Excerpt,
		ReadMinutes: EstimateReadingMinutes(post.Content),
		PostURL:     fmt.Sprintf("%s/posts/%s", s.baseURL, post.Slug),
	}

	var author db.User
	if err := s.db.First(&author, post.AuthorID).Error; err == nil {
		data.Author = author.Name
	}

	categories := post.Categories
	if len(categories) == 0 {
		var full db.Post
		if err := s.db.Preload("Categories").First(&full, post.ID).Error; err == nil {
			categories = full.Categories
		}
	}
	for _, category := range categories {
		data.Categories = append(data.Categories, category.Name)
	}

	// 相关文章：除当前文章外最近发布的两篇
	var related []db.Post
	if err := s.db.
		Where("status = ? AND id <> ?", db.StatusPublished, post.ID).
		Order("created_at desc").
		Limit(relatedPostLimit).
		Find(&related).Error; err != nil {
		return data, err
	}
	for _, rel := range related {
		data.Related = append(data.Related, relatedPostData{
			Title: rel.Title,
			URL:   fmt.Sprintf("%s/posts/%s", s.baseURL, rel.Slug),
		})
	}

	return data, nil
}

func (s *NotifyService) renderMail(data publishMailData, subscriber db.Subscriber) (string, error) {
	personalized := data
	personalized.UnsubscribeURL = fmt.Sprintf("%s/subscribers/unsubscribe/%s", s.baseURL, subscriber.UnsubscribeToken)

	var buf bytes.Buffer
	if err := publishMailTemplate.Execute(&buf, personalized); err != nil {
		return "", err
	}
	return buf.String(), nil
}
