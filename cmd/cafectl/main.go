package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"cafehub/internal/client"
	"cafehub/pkg/money"

	"github.com/spf13/pflag"
)

const usage = `用法: cafectl [flags] <command> [args]

命令:
  health
  purchase <customer_id> <goods_id:quantity>...
  recharge <account_id> <amount>
  claim <item_id> <claimant_id>
  read <message_id> <account_id>
  db-test <driver> <dsn>
  db-switch <driver> <dsn>
`

func main() {
	flags := pflag.NewFlagSet("cafectl", pflag.ExitOnError)
	addr := flags.String("addr", "http://127.0.0.1:8080", "服务地址")
	token := flags.String("admin-token", os.Getenv("CAFEHUB_SERVER_ADMIN_TOKEN"), "管理令牌")
	timeout := flags.Duration("timeout", 10*time.Second, "请求超时")
	flags.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flags.PrintDefaults()
	}
	_ = flags.Parse(os.Args[1:])

	args := flags.Args()
	if len(args) == 0 {
		flags.Usage()
		os.Exit(2)
	}

	c := client.New(*addr, *timeout).WithAdminToken(*token)
	env, err := run(context.Background(), c, args[0], args[1:])
	if err != nil {
		log.Fatalf("[cafectl] %v", err)
	}
	if env == nil {
		fmt.Println("ok")
		return
	}

	fmt.Printf("code=%d message=%s\n", env.Code, env.Message)
	if len(env.Data) > 0 {
		fmt.Println(string(env.Data))
	}
	if !env.OK() {
		os.Exit(1)
	}
}

func run(ctx context.Context, c *client.Client, cmd string, args []string) (*client.Envelope, error) {
	switch cmd {
	case "health":
		return nil, c.Health(ctx)

	case "purchase":
		if len(args) < 2 {
			return nil, fmt.Errorf("purchase 需要顾客ID和至少一个商品")
		}
		customerID, err := parseID(args[0])
		if err != nil {
			return nil, err
		}
		items, err := parseItems(args[1:])
		if err != nil {
			return nil, err
		}
		return c.Purchase(ctx, customerID, items)

	case "recharge":
		if len(args) != 2 {
			return nil, fmt.Errorf("recharge 需要账户ID和金额")
		}
		accountID, err := parseID(args[0])
		if err != nil {
			return nil, err
		}
		amount, err := money.Parse(args[1])
		if err != nil {
			return nil, err
		}
		return c.Recharge(ctx, accountID, amount)

	case "claim":
		ids, err := parseIDs(args, 2)
		if err != nil {
			return nil, err
		}
		return c.Claim(ctx, ids[0], ids[1])

	case "read":
		ids, err := parseIDs(args, 2)
		if err != nil {
			return nil, err
		}
		return c.MarkRead(ctx, ids[0], ids[1])

	case "db-test", "db-switch":
		if len(args) != 2 {
			return nil, fmt.Errorf("%s 需要 driver 和 dsn", cmd)
		}
		target := client.DatabaseTarget{Driver: args[0], DSN: args[1]}
		if cmd == "db-test" {
			return c.TestDatabase(ctx, target)
		}
		return c.SwitchDatabase(ctx, target)
	}
	return nil, fmt.Errorf("未知命令: %s", cmd)
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("无效的ID: %q", s)
	}
	return id, nil
}

func parseIDs(args []string, n int) ([]int64, error) {
	if len(args) != n {
		return nil, fmt.Errorf("需要 %d 个ID参数，实际 %d 个", n, len(args))
	}
	ids := make([]int64, n)
	for i, a := range args {
		id, err := parseID(a)
		if err != nil {
			return nil, err
		}
		ids[i] = id
	}
	return ids, nil
}

// parseItems 解析 goods_id:quantity 形式的购物车行
func parseItems(args []string) ([]client.PurchaseItem, error) {
	items := make([]client.PurchaseItem, 0, len(args))
	for _, a := range args {
		id, qty, ok := strings.Cut(a, ":")
		if !ok {
			return nil, fmt.Errorf("购物车行格式应为 goods_id:quantity，实际 %q", a)
		}
		goodsID, err := parseID(id)
		if err != nil {
			return nil, err
		}
		quantity, err := strconv.Atoi(qty)
		if err != nil || quantity <= 0 {
			return nil, fmt.Errorf("无效的数量: %q", a)
		}
		items = append(items, client.PurchaseItem{GoodsID: goodsID, Quantity: quantity})
	}
	return items, nil
}
