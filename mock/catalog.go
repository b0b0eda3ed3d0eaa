package mock

import (
	"fmt"
	"net/http"
	"slices"
	"strings"
)

// DemoImagePrefix is the object key prefix of every demo image.
const DemoImagePrefix = "demo/"

// categories lists the demo product categories in catalog order.
var categories = []string{
	"ELECTRONICS",
	"BEAUTY",
	"FASHION",
	"LIVING",
	"FOODS",
	"TOYS",
	"OUTDOOR",
	"PET",
	"KITCHEN",
}

const productsPerCategory = 3

const (
	demoSeller    = "데모 셀러"
	demoNickname  = "데모 사용자"
	demoEmail     = "demo@giftify.app"
	demoName      = "홍길동"
	demoAuthSub   = "auth0|demo"
	friendOneNick = "친구1"
	friendTwoNick = "친구2"
)

type product struct {
	ID             int64  `json:"id"`
	SellerNickName string `json:"sellerNickName"`
	Name           string `json:"name"`
	Description    string `json:"description"`
	Price          int64  `json:"price"`
	Category       string `json:"category"`
	ImageKey       string `json:"imageKey"`
	IsSoldout      bool   `json:"isSoldout"`
	IsActive       bool   `json:"isActive"`
	CreatedAt      string `json:"createdAt"`
}

type page[T any] struct {
	Content       []T  `json:"content"`
	PageNumber    int  `json:"pageNumber"`
	PageSize      int  `json:"pageSize"`
	TotalElements int  `json:"totalElements"`
	TotalPages    int  `json:"totalPages"`
	IsFirst       bool `json:"isFirst"`
	IsLast        bool `json:"isLast"`
}

type pageable struct {
	PageNumber int `json:"pageNumber"`
	PageSize   int `json:"pageSize"`
}

// springPage is the raw page shape some backend endpoints still return.
type springPage[T any] struct {
	Content       []T      `json:"content"`
	Pageable      pageable `json:"pageable"`
	TotalElements int      `json:"totalElements"`
	TotalPages    int      `json:"totalPages"`
	Number        int      `json:"number"`
	Size          int      `json:"size"`
	First         bool     `json:"first"`
	Last          bool     `json:"last"`
}

type member struct {
	ID        int64   `json:"id"`
	AuthSub   string  `json:"authSub"`
	Nickname  string  `json:"nickname"`
	Email     string  `json:"email"`
	Name      string  `json:"name"`
	AvatarURL *string `json:"avatarUrl"`
	Role      string  `json:"role"`
	Status    string  `json:"status"`
}

type memberSummary struct {
	ID       int64  `json:"id"`
	Nickname string `json:"nickname"`
}

type registration struct {
	Registered bool          `json:"registered"`
	Member     memberSummary `json:"member"`
}

type loginMember struct {
	ID       int64  `json:"id"`
	Nickname string `json:"nickname"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	Status   string `json:"status"`
}

type login struct {
	IsNewUser bool        `json:"isNewUser"`
	AuthSub   string      `json:"authSub"`
	Email     string      `json:"email"`
	Name      string      `json:"name"`
	Member    loginMember `json:"member"`
}

type walletBalance struct {
	WalletID int64 `json:"walletId"`
	Balance  int64 `json:"balance"`
}

type walletTransaction struct {
	ID           int64  `json:"id"`
	Type         string `json:"type"`
	Amount       int64  `json:"amount"`
	BalanceAfter int64  `json:"balanceAfter"`
	Description  string `json:"description"`
	RelatedID    *int64 `json:"relatedId"`
	CreatedAt    string `json:"createdAt"`
}

type withdrawal struct {
	WalletID        int64  `json:"walletId"`
	Balance         int64  `json:"balance"`
	WithdrawnAmount int64  `json:"withdrawnAmount"`
	TransactionID   string `json:"transactionId"`
	Status          string `json:"status"`
}

type cartItem struct {
	TargetType         string  `json:"targetType"`
	TargetID           int64   `json:"targetId"`
	ReceiverID         int64   `json:"receiverId"`
	ReceiverNickname   string  `json:"receiverNickname"`
	ProductName        string  `json:"productName"`
	ImageKey           string  `json:"imageKey"`
	ProductPrice       int64   `json:"productPrice"`
	ContributionAmount int64   `json:"contributionAmount"`
	Status             string  `json:"status"`
	StatusMessage      *string `json:"statusMessage"`
}

type cart struct {
	CartID      int64      `json:"cartId"`
	MemberID    int64      `json:"memberId"`
	Items       []cartItem `json:"items"`
	TotalAmount int64      `json:"totalAmount"`
}

type money struct {
	Amount int64 `json:"amount"`
}

type order struct {
	OrderID       int64   `json:"orderId"`
	OrderNumber   string  `json:"orderNumber"`
	Quantity      int     `json:"quantity"`
	TotalAmount   money   `json:"totalAmount"`
	Status        string  `json:"status"`
	PaymentMethod string  `json:"paymentMethod"`
	CreatedAt     string  `json:"createdAt"`
	PaidAt        *string `json:"paidAt"`
	ConfirmedAt   *string `json:"confirmedAt"`
	CancelledAt   *string `json:"cancelledAt"`
}

type orderItem struct {
	OrderItemID   int64   `json:"orderItemId"`
	TargetID      int64   `json:"targetId"`
	OrderItemType string  `json:"orderItemType"`
	SellerID      int64   `json:"sellerId"`
	ReceiverID    int64   `json:"receiverId"`
	Price         money   `json:"price"`
	Amount        money   `json:"amount"`
	Status        string  `json:"status"`
	CancelledAt   *string `json:"cancelledAt"`
}

type orderList struct {
	Orders        []order `json:"orders"`
	Page          int     `json:"page"`
	Size          int     `json:"size"`
	TotalElements int     `json:"totalElements"`
	TotalPages    int     `json:"totalPages"`
	HasNext       bool    `json:"hasNext"`
	HasPrevious   bool    `json:"hasPrevious"`
}

type orderDetail struct {
	OrderDetail struct {
		Order order       `json:"order"`
		Items []orderItem `json:"items"`
	} `json:"orderDetail"`
}

type orderCreated struct {
	OrderID int64 `json:"orderId"`
}

type funding struct {
	FundingID        int64  `json:"fundingId"`
	TargetAmount     int64  `json:"targetAmount"`
	CurrentAmount    int64  `json:"currentAmount"`
	Status           string `json:"status"`
	Deadline         string `json:"deadline"`
	WishlistItemID   int64  `json:"wishlistItemId"`
	ProductID        int64  `json:"productId"`
	ProductName      string `json:"productName"`
	ImageKey         string `json:"imageKey"`
	AchievementRate  int    `json:"achievementRate"`
	DaysRemaining    int    `json:"daysRemaining"`
	ReceiverNickname string `json:"receiverNickname"`
}

type participatedFunding struct {
	funding
	MyContribution int64 `json:"myContribution"`
}

type friend struct {
	ID           int64   `json:"id"`
	FriendshipID int64   `json:"friendshipId"`
	Nickname     string  `json:"nickname"`
	AvatarURL    *string `json:"avatarUrl"`
}

type wishItem struct {
	WishlistItemID int64  `json:"wishlistItemId"`
	ProductID      int64  `json:"productId"`
	ProductName    string `json:"productName"`
	Price          int64  `json:"price"`
	ImageKey       string `json:"imageKey"`
	SellerNickname string `json:"sellerNickname"`
	Category       string `json:"category"`
	Status         string `json:"status"`
	FundingID      *int64 `json:"fundingId"`
	AddedAt        string `json:"addedAt"`
}

type myWishlist struct {
	ID         int64          `json:"id"`
	MemberID   int64          `json:"memberId"`
	Nickname   string         `json:"nickname"`
	Visibility string         `json:"visibility"`
	Items      page[wishItem] `json:"items"`
	ItemCount  int            `json:"itemCount"`
}

type publicWishItem struct {
	WishlistItemID int64  `json:"wishlistItemId"`
	ProductID      int64  `json:"productId"`
	ProductName    string `json:"productName"`
	Price          int64  `json:"price"`
	AddedAt        string `json:"addedAt"`
}

type memberWishlist struct {
	MemberID int64            `json:"memberId"`
	Nickname string           `json:"nickname"`
	Items    []publicWishItem `json:"items"`
}

type wishlistOwner struct {
	MemberID int64  `json:"memberId"`
	Nickname string `json:"nickname"`
}

type wishlistSettings struct {
	Visibility string `json:"visibility"`
}

type notification struct {
	ID            int64   `json:"id"`
	Type          string  `json:"type"`
	Title         string  `json:"title"`
	Content       string  `json:"content"`
	IsRead        bool    `json:"isRead"`
	ReadAt        *string `json:"readAt"`
	ReferenceID   string  `json:"referenceId"`
	ReferenceType string  `json:"referenceType"`
	CreatedAt     string  `json:"createdAt"`
}

type unreadCount struct {
	Count int `json:"count"`
}

type paymentConfirmed struct {
	OrderID int64  `json:"orderId"`
	Status  string `json:"status"`
}

type charge struct {
	ChargeID   string `json:"chargeId"`
	PaymentURL string `json:"paymentUrl"`
	Amount     int64  `json:"amount"`
}

func ptr[T any](v T) *T { return &v }

func imageKey(category string) string {
	if slices.Contains(categories, category) {
		return DemoImagePrefix + strings.ToLower(category) + ".jpg"
	}
	return DemoImagePrefix + "default.jpg"
}

func demoProduct(id int64, category string) product {
	return product{
		ID:             id,
		SellerNickName: demoSeller,
		Name:           fmt.Sprintf("%s 샘플 상품 %d", category, id),
		Description:    fmt.Sprintf("%s 카테고리의 데모 상품입니다.", category),
		Price:          10000 + id*5000,
		Category:       category,
		ImageKey:       imageKey(category),
		IsSoldout:      false,
		IsActive:       true,
		CreatedAt:      "2026-02-01T00:00:00",
	}
}

// demoProducts returns the full catalog, productsPerCategory per category,
// numbered from 1 in category order.
func demoProducts() []product {
	products := make([]product, 0, len(categories)*productsPerCategory)
	id := int64(1)
	for _, c := range categories {
		for i := 0; i < productsPerCategory; i++ {
			products = append(products, demoProduct(id, c))
			id++
		}
	}
	return products
}

// productByID returns the catalog product with the given id. Ids outside
// the catalog get an ELECTRONICS product so detail pages always render.
func productByID(id int64) product {
	if id >= 1 && id <= int64(len(categories)*productsPerCategory) {
		return demoProduct(id, categories[(id-1)/productsPerCategory])
	}
	return demoProduct(id, "ELECTRONICS")
}

func singlePage[T any](content []T, size int) page[T] {
	if content == nil {
		content = []T{}
	}
	totalPages := 1
	if len(content) == 0 {
		totalPages = 0
	}
	return page[T]{
		Content:       content,
		PageNumber:    0,
		PageSize:      size,
		TotalElements: len(content),
		TotalPages:    totalPages,
		IsFirst:       true,
		IsLast:        true,
	}
}

func singleSpringPage[T any](content []T, size int) springPage[T] {
	return springPage[T]{
		Content:       content,
		Pageable:      pageable{PageNumber: 0, PageSize: size},
		TotalElements: len(content),
		TotalPages:    1,
		Number:        0,
		Size:          size,
		First:         true,
		Last:          true,
	}
}

func demoMember() member {
	return member{
		ID:       1,
		AuthSub:  demoAuthSub,
		Nickname: demoNickname,
		Email:    demoEmail,
		Name:     demoName,
		Role:     "BUYER",
		Status:   "ACTIVE",
	}
}

// Contribution amounts shared by the cart, orders and fundings.
const (
	walletBalanceAmount = 150000
	chargeAmount        = 100000
	withdrawAmount      = 50000
	myContribution      = 5000
)

// demoFundings are the fundings referenced from carts, wishlists and
// notifications. Target amounts equal the price of the funded product.
func demoFundings() []funding {
	first := productByID(1)
	fourth := productByID(4)
	return []funding{
		{
			FundingID:        101,
			TargetAmount:     first.Price,
			CurrentAmount:    first.Price * 40 / 100,
			Status:           "IN_PROGRESS",
			Deadline:         "2026-03-15T00:00:00",
			WishlistItemID:   1,
			ProductID:        first.ID,
			ProductName:      first.Name,
			ImageKey:         first.ImageKey,
			AchievementRate:  40,
			DaysRemaining:    18,
			ReceiverNickname: friendOneNick,
		},
		{
			FundingID:        102,
			TargetAmount:     fourth.Price,
			CurrentAmount:    fourth.Price,
			Status:           "ACHIEVED",
			Deadline:         "2026-03-10T00:00:00",
			WishlistItemID:   2,
			ProductID:        fourth.ID,
			ProductName:      fourth.Name,
			ImageKey:         fourth.ImageKey,
			AchievementRate:  100,
			DaysRemaining:    0,
			ReceiverNickname: friendTwoNick,
		},
	}
}

func fundingByID(id int64) funding {
	fundings := demoFundings()
	for _, f := range fundings {
		if f.FundingID == id {
			return f
		}
	}
	return fundings[0]
}

func demoCart() cart {
	first := productByID(1)
	fourth := productByID(4)
	items := []cartItem{
		{
			TargetType:         "FUNDING",
			TargetID:           101,
			ReceiverID:         2,
			ReceiverNickname:   friendOneNick,
			ProductName:        first.Name,
			ImageKey:           first.ImageKey,
			ProductPrice:       first.Price,
			ContributionAmount: myContribution,
			Status:             "AVAILABLE",
		},
		{
			TargetType:         "FUNDING_PENDING",
			TargetID:           2,
			ReceiverID:         3,
			ReceiverNickname:   friendTwoNick,
			ProductName:        fourth.Name,
			ImageKey:           fourth.ImageKey,
			ProductPrice:       fourth.Price,
			ContributionAmount: fourth.Price,
			Status:             "AVAILABLE",
		},
	}
	var total int64
	for _, it := range items {
		total += it.ContributionAmount
	}
	return cart{CartID: 1, MemberID: 1, Items: items, TotalAmount: total}
}

func demoOrder() order {
	return order{
		OrderID:       1001,
		OrderNumber:   "ORD-20260225-001",
		Quantity:      1,
		TotalAmount:   money{Amount: myContribution},
		Status:        "PAID",
		PaymentMethod: "DEPOSIT",
		CreatedAt:     "2026-02-25T10:00:00",
		PaidAt:        ptr("2026-02-25T10:00:01"),
	}
}

func demoOrderDetail() orderDetail {
	var d orderDetail
	d.OrderDetail.Order = demoOrder()
	d.OrderDetail.Items = []orderItem{
		{
			OrderItemID:   1,
			TargetID:      101,
			OrderItemType: "FUNDING_GIFT",
			SellerID:      10,
			ReceiverID:    2,
			Price:         money{Amount: productByID(1).Price},
			Amount:        money{Amount: myContribution},
			Status:        "PAID",
		},
	}
	return d
}

func demoWishlist() myWishlist {
	first := productByID(1)
	fourth := productByID(4)
	items := []wishItem{
		{
			WishlistItemID: 1,
			ProductID:      first.ID,
			ProductName:    first.Name,
			Price:          first.Price,
			ImageKey:       first.ImageKey,
			SellerNickname: demoSeller,
			Category:       first.Category,
			Status:         "IN_PROGRESS",
			FundingID:      ptr(int64(101)),
			AddedAt:        "2026-02-01T00:00:00",
		},
		{
			WishlistItemID: 2,
			ProductID:      fourth.ID,
			ProductName:    fourth.Name,
			Price:          fourth.Price,
			ImageKey:       fourth.ImageKey,
			SellerNickname: demoSeller,
			Category:       fourth.Category,
			Status:         "PENDING",
			AddedAt:        "2026-02-05T00:00:00",
		},
	}
	return myWishlist{
		ID:         1,
		MemberID:   1,
		Nickname:   demoNickname,
		Visibility: "PUBLIC",
		Items:      singlePage(items, 10),
		ItemCount:  len(items),
	}
}

func demoNotifications() []notification {
	return []notification{
		{
			ID:            1,
			Type:          "FUNDING_CREATED",
			Title:         "새 펀딩이 생성되었습니다",
			Content:       fmt.Sprintf("%s님이 %s 펀딩을 시작했습니다.", friendOneNick, productByID(1).Name),
			IsRead:        false,
			ReferenceID:   "101",
			ReferenceType: "FUNDING",
			CreatedAt:     "2026-02-25T09:00:00",
		},
		{
			ID:            2,
			Type:          "FRIEND_REQUEST_ACCEPTED",
			Title:         "친구 요청이 수락되었습니다",
			Content:       fmt.Sprintf("%s님이 친구 요청을 수락했습니다.", friendTwoNick),
			IsRead:        true,
			ReadAt:        ptr("2026-02-24T15:00:00"),
			ReferenceID:   "2",
			ReferenceType: "FRIENDSHIP",
			CreatedAt:     "2026-02-24T14:00:00",
		},
	}
}

func unreadNotifications() int {
	n := 0
	for _, nt := range demoNotifications() {
		if !nt.IsRead {
			n++
		}
	}
	return n
}

func empty(Params) Result { return OK(nil) }

func emptyList(Params) Result { return OK([]struct{}{}) }

func emptyPage(Params) Result { return OK(singlePage[funding](nil, 10)) }

func entry(method string, p Pattern, h Handler) Entry {
	return Entry{Method: method, Pattern: p, Handler: h}
}

var defaultTable = NewTable(
	// Products
	entry(http.MethodGet, Prefix("api/v2/products/search/es"), func(Params) Result {
		return OK(singlePage(demoProducts(), 20))
	}),
	entry(http.MethodGet, WithID("api/v2/products/{id}"), func(p Params) Result {
		return OK(productByID(p.Int("id")))
	}),

	// Members
	entry(http.MethodGet, Exact("api/v2/members/me"), func(Params) Result {
		return OK(demoMember())
	}),
	entry(http.MethodPatch, Exact("api/v2/members/me"), func(Params) Result {
		return OK(demoMember())
	}),
	entry(http.MethodGet, Exact("api/v2/members/check-registration"), func(Params) Result {
		return OK(registration{Registered: true, Member: memberSummary{ID: 1, Nickname: demoNickname}})
	}),

	// Wallet
	entry(http.MethodGet, Exact("api/v2/wallet/balance"), func(Params) Result {
		return OK(walletBalance{WalletID: 1, Balance: walletBalanceAmount})
	}),
	entry(http.MethodGet, Prefix("api/v2/wallet/history"), func(Params) Result {
		return OK(singleSpringPage([]walletTransaction{
			{
				ID:           1,
				Type:         "CHARGE",
				Amount:       chargeAmount,
				BalanceAfter: walletBalanceAmount,
				Description:  "충전",
				CreatedAt:    "2026-02-20T10:00:00",
			},
		}, 10))
	}),
	entry(http.MethodPost, Exact("api/v2/wallet/withdraw"), func(Params) Result {
		return OK(withdrawal{
			WalletID:        1,
			Balance:         walletBalanceAmount - withdrawAmount,
			WithdrawnAmount: withdrawAmount,
			TransactionID:   "txn-demo-001",
			Status:          "COMPLETED",
		})
	}),

	// Cart
	entry(http.MethodGet, Exact("api/v2/carts"), func(Params) Result {
		return OK(demoCart())
	}),
	entry(http.MethodPost, Exact("api/v2/carts"), empty),
	entry(http.MethodPatch, Exact("api/v2/carts/items"), empty),
	entry(http.MethodDelete, Exact("api/v2/carts"), empty),

	// Orders
	entry(http.MethodPost, Exact("api/v2/orders"), func(Params) Result {
		return OK(orderCreated{OrderID: demoOrder().OrderID})
	}),
	entry(http.MethodGet, Exact("api/v2/orders"), func(Params) Result {
		return OK(orderList{
			Orders:        []order{demoOrder()},
			Page:          0,
			Size:          10,
			TotalElements: 1,
			TotalPages:    1,
		})
	}),
	entry(http.MethodGet, WithID("api/v2/orders/{id}"), func(Params) Result {
		return OK(demoOrderDetail())
	}),

	// Fundings
	entry(http.MethodGet, Prefix("api/v2/fundings/list"), func(Params) Result {
		return OK(singlePage(demoFundings(), 10))
	}),
	entry(http.MethodGet, Prefix("api/v2/fundings/my/list"), emptyPage),
	entry(http.MethodGet, Prefix("api/v2/fundings/participated/list"), func(Params) Result {
		return OK(singlePage([]participatedFunding{
			{funding: fundingByID(101), MyContribution: myContribution},
		}, 10))
	}),
	entry(http.MethodGet, Prefix("api/v2/fundings/friends/list"), emptyPage),
	entry(http.MethodGet, WithID("api/v2/fundings/{id}"), func(p Params) Result {
		return OK(fundingByID(p.Int("id")))
	}),

	// Friends
	entry(http.MethodGet, Exact("api/v2/friends"), func(Params) Result {
		return OK([]friend{
			{ID: 2, FriendshipID: 1, Nickname: friendOneNick},
			{ID: 3, FriendshipID: 2, Nickname: friendTwoNick},
		})
	}),
	entry(http.MethodGet, Exact("api/v2/friends/requests"), emptyList),
	entry(http.MethodGet, Exact("api/v2/friends/requests/sent"), emptyList),
	entry(http.MethodGet, Prefix("api/v2/friends/wishlists"), emptyList),

	// Wishlists
	entry(http.MethodGet, Prefix("api/v2/wishlists/me"), func(Params) Result {
		return OK(demoWishlist())
	}),
	entry(http.MethodPatch, Exact("api/v2/wishlists/me/settings"), func(Params) Result {
		return OK(wishlistSettings{Visibility: "PUBLIC"})
	}),
	entry(http.MethodGet, Prefix("api/v2/wishlists/search"), func(Params) Result {
		return OK([]wishlistOwner{{MemberID: 2, Nickname: friendOneNick}})
	}),
	entry(http.MethodGet, WithID("api/v2/wishlists/{id}"), func(Params) Result {
		first := productByID(1)
		return OK(memberWishlist{
			MemberID: 2,
			Nickname: friendOneNick,
			Items: []publicWishItem{
				{
					WishlistItemID: 10,
					ProductID:      first.ID,
					ProductName:    first.Name,
					Price:          first.Price,
					AddedAt:        "2026-02-01T00:00:00",
				},
			},
		})
	}),

	// Notifications
	entry(http.MethodGet, Exact("api/v1/notifications/unread/count"), func(Params) Result {
		return OK(unreadCount{Count: unreadNotifications()})
	}),
	entry(http.MethodGet, Prefix("api/v1/notifications"), func(Params) Result {
		return OK(singleSpringPage(demoNotifications(), 20))
	}),
	entry(http.MethodPatch, Exact("api/v1/notifications/read-all"), empty),
	entry(http.MethodPatch, WithID("api/v1/notifications/{id}/read"), empty),

	// Payments
	entry(http.MethodPost, Exact("api/v2/payments/confirm"), func(Params) Result {
		return OK(paymentConfirmed{OrderID: demoOrder().OrderID, Status: "PAID"})
	}),
	entry(http.MethodPost, Exact("api/v2/payments/charge"), func(Params) Result {
		return OK(charge{
			ChargeID:   "charge-demo-001",
			PaymentURL: "https://demo.tosspayments.com/charge",
			Amount:     withdrawAmount,
		})
	}),

	// Seller products
	entry(http.MethodGet, Prefix("api/v2/products/my"), func(Params) Result {
		return OK(singlePage([]product{productByID(1)}, 10))
	}),
	entry(http.MethodPost, Exact("api/v2/products"), func(Params) Result {
		return OK(demoProduct(99, "ELECTRONICS"))
	}),

	// Auth
	entry(http.MethodPost, Exact("api/v2/auth/login"), func(Params) Result {
		m := demoMember()
		return OK(login{
			IsNewUser: false,
			AuthSub:   m.AuthSub,
			Email:     m.Email,
			Name:      m.Name,
			Member: loginMember{
				ID:       m.ID,
				Nickname: m.Nickname,
				Email:    m.Email,
				Role:     m.Role,
				Status:   m.Status,
			},
		})
	}),
)

// Default returns the built-in demo catalog.
func Default() *Table {
	return defaultTable
}
